package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-poster-kit/internal/builder"
	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/poster"

	"github.com/spf13/cobra"
)

// generateCmd は、プロンプトファイルから 4K ポスター画像を生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <prompt-file> [output-file]",
	Short: "プロンプトファイルから 4K ポスター画像を生成しますなのだ。",
	Long: `テキストファイルに書かれたプロンプトを Gemini に送り、16:9 / 4K の画像を生成するのだ。
作業用ファイルと、タイムスタンプ付きのバージョンコピーの2つが保存されるのだよ。`,
	Args: cobra.RangeArgs(1, 2),
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	promptFile := args[0]
	promptData, err := os.ReadFile(promptFile)
	if err != nil {
		return fmt.Errorf("プロンプトファイルの読み込みに失敗したのだ: %w", err)
	}
	prompt := strings.TrimSpace(string(promptData))
	if prompt == "" {
		return fmt.Errorf("プロンプトファイルが空なのだ: %s", promptFile)
	}

	// 出力先が未指定なら <プロンプト名>_generated.png にするのだ
	var outputFile string
	if len(args) == 2 {
		outputFile = args[1]
	} else {
		stem := strings.TrimSuffix(filepath.Base(promptFile), filepath.Ext(promptFile))
		outputFile = stem + "_generated.png"
	}

	// 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("ポスター生成を開始するのだ！",
		"prompt_file", promptFile,
		"output_file", outputFile,
		"image_model", cfg.GeminiImageModel)

	gen, err := builder.InitializeGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("画像生成クライアントの初期化に失敗したのだ: %w", err)
	}

	data, err := gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}

	stamped, err := poster.StampDPI(data)
	if err != nil {
		return fmt.Errorf("印刷解像度の埋め込みに失敗したのだ: %w", err)
	}

	width, height, err := poster.Dimensions(stamped)
	if err != nil {
		return fmt.Errorf("画像寸法の取得に失敗したのだ: %w", err)
	}

	store, writer, err := builder.InitializeStore(ctx, opts)
	if err != nil {
		return fmt.Errorf("アーカイブの初期化に失敗したのだ: %w", err)
	}

	// 作業用ファイルは常に同じ名前で上書きされるのだ
	if err := writer.Write(ctx, outputFile, bytes.NewReader(stamped), "image/png"); err != nil {
		return fmt.Errorf("作業用ファイルの書き込みに失敗したのだ: %w", err)
	}

	// タイムスタンプ付きのバージョンコピーを隣に残すのだ
	versioned, err := store.SaveVersionedCopy(ctx, outputFile, stamped, time.Now())
	if err != nil {
		return fmt.Errorf("バージョンコピーの保存に失敗したのだ: %w", err)
	}

	slog.Info("ポスター生成が完了したのだ！",
		"output", outputFile,
		"versioned", versioned,
		"size", fmt.Sprintf("%dx%d", width, height))

	fmt.Println(versioned)
	return nil
}
