package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var (
	// ErrMissingAPIKey は、GEMINI_API_KEY が設定されていない場合のエラーなのだ。
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY が設定されていません")

	// ErrNoImage は、応答に画像データが1つも含まれていなかった場合のエラーなのだ。
	ErrNoImage = errors.New("応答に画像データが含まれていません")
)

// Generator は、テキストプロンプトから画像バイト列を生成するインターフェースなのだ。
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Config は画像生成クライアントの設定なのだ。
type Config struct {
	APIKey       string
	Model        string
	AspectRatio  string
	ImageSize    string
	Timeout      time.Duration
	RateInterval time.Duration
}

// GeminiGenerator は Gemini API を使って画像を生成するのだ。
// リトライは行わない。失敗は呼び出し元にそのまま返すのだ。
type GeminiGenerator struct {
	client  *genai.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewGeminiGenerator は Gemini クライアントを初期化するのだ。
// API キーが空ならクライアントを作らずに ErrMissingAPIKey を返すのだ。
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini クライアントの初期化に失敗しました: %w", err)
	}

	interval := cfg.RateInterval
	if interval <= 0 {
		interval = time.Nanosecond
	}

	return &GeminiGenerator{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Generate はプロンプトを送信し、応答から最初の画像バイト列を取り出すのだ。
// 画像サイズとアスペクト比はポスター用途のため固定値で要求するのだ。
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミッターの待機中に中断されました: %w", err)
	}

	slog.Info("画像生成リクエストを送信するのだ",
		slog.String("model", g.cfg.Model),
		slog.String("aspect_ratio", g.cfg.AspectRatio),
		slog.String("image_size", g.cfg.ImageSize),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: g.cfg.AspectRatio,
				ImageSize:   g.cfg.ImageSize,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("画像生成 API の呼び出しに失敗しました: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, ErrNoImage
}
