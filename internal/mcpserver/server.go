// Package mcpserver は、画像生成とプロンプト閲覧を MCP ツールとして公開するのだ。
// ツールの応答はクライアントにそのまま表示される英語テキスト、
// 運用ログは slog で出す、という使い分けなのだ。
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shouni/go-poster-kit/internal/archive"
	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/poster"
	"github.com/shouni/go-poster-kit/pkg/naming"
)

const (
	serverName    = "prompt2image"
	serverVersion = "1.0.0"

	recentImageLimit = 10
)

// GeneratorFactory は画像生成クライアントを遅延初期化するファクトリなのだ。
// サーバ起動時に API キーがなくても立ち上がり、ツール呼び出し時に検証するのだ。
type GeneratorFactory func(ctx context.Context) (poster.Generator, error)

// Server は MCP ツールのファサードなのだ。
type Server struct {
	cfg     *config.Config
	store   *archive.Store
	factory GeneratorFactory

	// ツール呼び出しは別々のゴルーチンで届くことがあるので、
	// 遅延初期化は once で一度きりに束ねるのだ。
	genOnce   sync.Once
	generator poster.Generator
	genErr    error
}

// New は MCP サーバを生成するのだ。
func New(cfg *config.Config, store *archive.Store, factory GeneratorFactory) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		factory: factory,
	}
}

// Run はツールを登録し、標準入出力上で MCP プロトコルを話し始めるのだ。
// クライアントが接続を閉じるまでブロックするのだ。
func (s *Server) Run(ctx context.Context) error {
	srv := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
	)

	generateTool := mcp.NewTool("generate_image",
		mcp.WithDescription("Generate a 4K image (16:9) from a text prompt using Gemini 3 Pro Image. Takes 30-60 seconds. Returns the path to the generated image."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The text prompt describing the image to generate"),
		),
		mcp.WithString("filename",
			mcp.Description("Optional base filename (without extension or timestamp)"),
		),
	)
	srv.AddTool(generateTool, s.handleGenerateImage)

	viewTool := mcp.NewTool("view_prompt",
		mcp.WithDescription("View the prompt that was used to generate an existing image"),
		mcp.WithString("image_name",
			mcp.Required(),
			mcp.Description("Name or partial name of the image file in outputs/"),
		),
	)
	srv.AddTool(viewTool, s.handleViewPrompt)

	slog.Info("MCP サーバを起動するのだ", slog.String("name", serverName))
	return server.ServeStdio(srv)
}

func (s *Server) handleGenerateImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	return mcp.NewToolResultText(s.generateReport(ctx, prompt, filename)), nil
}

func (s *Server) handleViewPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	imageName, err := req.RequireString("image_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.viewPromptReport(ctx, imageName)), nil
}

// generateReport は generate_image ツールの本体なのだ。
// 失敗もすべて人間向けのテキストとして返す（プロトコルエラーにはしない）のだ。
func (s *Server) generateReport(ctx context.Context, prompt, filename string) string {
	if s.cfg.GeminiAPIKey == "" {
		return "Error: GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey and export it."
	}

	var name string
	if filename != "" {
		name = naming.SanitizeBaseName(filename)
	} else {
		name = naming.DeriveName(prompt)
	}

	promptPath, err := s.store.SavePrompt(ctx, name, prompt)
	if err != nil {
		slog.Error("プロンプトの保存に失敗したのだ", slog.Any("error", err))
		return fmt.Sprintf("Error saving prompt: %v", err)
	}

	gen, err := s.ensureGenerator(ctx)
	if err != nil {
		if errors.Is(err, poster.ErrMissingAPIKey) {
			return "Error: GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey and export it."
		}
		return fmt.Sprintf("Error initializing Gemini client: %v", err)
	}

	slog.Info("画像生成を開始するのだ", slog.String("name", name))

	data, err := gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, poster.ErrNoImage) {
			return "Error: No image in response from Gemini"
		}
		return fmt.Sprintf("Error generating image: %v", err)
	}

	stamped, err := poster.StampDPI(data)
	if err != nil {
		return fmt.Sprintf("Error processing image: %v", err)
	}

	width, height, err := poster.Dimensions(stamped)
	if err != nil {
		return fmt.Sprintf("Error reading image dimensions: %v", err)
	}

	imagePath, _, err := s.store.SaveImage(ctx, name, stamped)
	if err != nil {
		slog.Error("画像の保存に失敗したのだ", slog.Any("error", err))
		return fmt.Sprintf("Error saving image: %v", err)
	}

	return fmt.Sprintf("Image generated successfully!\n  Path: %s\n  Size: %dx%d pixels\n  Prompt saved: %s",
		imagePath, width, height, promptPath)
}

// viewPromptReport は view_prompt ツールの本体なのだ。
func (s *Server) viewPromptReport(ctx context.Context, imageName string) string {
	imageFile, ok := s.store.FindImage(ctx, imageName)
	if !ok {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Image not found: %s\n\nAvailable images:\n", imageName)
		for _, recent := range s.store.RecentImages(ctx, recentImageLimit) {
			fmt.Fprintf(&sb, "  - %s\n", recent)
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	prompts, err := s.store.ListPrompts(ctx)
	if err != nil {
		return fmt.Sprintf("Error listing prompts: %v", err)
	}

	promptFile, ok := naming.MatchPrompt(imageFile, prompts)
	if !ok {
		return fmt.Sprintf("No prompt found for %s", imageFile)
	}

	text, err := s.store.ReadPrompt(ctx, strings.TrimSuffix(promptFile, ".txt"))
	if err != nil {
		return fmt.Sprintf("Error reading prompt: %v", err)
	}

	return fmt.Sprintf("Image: %s\nPrompt file: %s\n\n%s", imageFile, promptFile, text)
}

// ensureGenerator は初回呼び出し時にだけ生成クライアントを初期化するのだ。
// 並行するツール呼び出しから呼ばれても初期化は一度だけなのだ。
func (s *Server) ensureGenerator(ctx context.Context) (poster.Generator, error) {
	s.genOnce.Do(func() {
		s.generator, s.genErr = s.factory(ctx)
	})
	return s.generator, s.genErr
}
