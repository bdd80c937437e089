package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-poster-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は addAppFlags で各フラグに紐付けられる実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- アーカイブの配置 ---
	rootCmd.PersistentFlags().StringVarP(&opts.PromptsDir, "prompts-dir", "p", config.DefaultPromptsDir, "プロンプト（.txt）を保存するディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputsDir, "outputs-dir", "o", config.DefaultOutputsDir, "生成画像（.png）を保存するディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.GalleryFile, "gallery-file", config.DefaultGalleryFile, "ギャラリーHTMLの出力先パスなのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "使用する Gemini 画像モデル名なのだ（未指定なら IMAGE_GEMINI_MODEL に従うのだ）。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "画像生成リクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
// serve は API キーなしでも起動してツール呼び出し時に検証し、
// gallery はそもそも Gemini API を呼ばないので、どちらも除外するのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	switch cmd.Name() {
	case "serve", "gallery":
		return nil
	}

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"go-poster-kit",
		addAppFlags,
		preRunAppE,
		generateCmd,
		galleryCmd,
		serveCmd,
	)
}
