package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-poster-kit/internal/archive"
	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/gallery"
	"github.com/shouni/go-poster-kit/internal/poster"
)

// InitializeOutputWriter はローカル/GCS 両対応の書き込みクライアントを初期化します。
// パスのスキームに応じて保存先が切り替わるのだ。
func InitializeOutputWriter(ctx context.Context) (archive.OutputWriter, error) {
	factory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("ストレージクライアントの初期化に失敗しました: %w", err)
	}
	writer, err := factory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("OutputWriterの取得に失敗しました: %w", err)
	}
	return writer, nil
}

// InitializeStore はプロンプトアーカイブを初期化します。
func InitializeStore(ctx context.Context, opts config.GenerateOptions) (*archive.Store, archive.OutputWriter, error) {
	writer, err := InitializeOutputWriter(ctx)
	if err != nil {
		return nil, nil, err
	}
	store := archive.NewStore(opts.PromptsDir, opts.OutputsDir, writer)
	return store, writer, nil
}

// InitializeGenerator は Gemini の画像生成クライアントを初期化します。
// ポスター用途のため、アスペクト比と画像サイズは固定値で渡すのだ。
func InitializeGenerator(ctx context.Context, cfg *config.Config) (poster.Generator, error) {
	model := cfg.Options.ImageModel
	if model == "" {
		model = cfg.GeminiImageModel
	}
	return poster.NewGeminiGenerator(ctx, poster.Config{
		APIKey:       cfg.GeminiAPIKey,
		Model:        model,
		AspectRatio:  config.DefaultAspectRatio,
		ImageSize:    config.DefaultImageSize,
		Timeout:      cfg.Options.HTTPTimeout,
		RateInterval: config.DefaultRateLimit,
	})
}

// InitializeGalleryRenderer はギャラリー生成器を初期化します。
func InitializeGalleryRenderer(ctx context.Context, opts config.GenerateOptions) (*gallery.Renderer, error) {
	store, writer, err := InitializeStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	return gallery.NewRenderer(store, writer, opts.GalleryFile), nil
}
