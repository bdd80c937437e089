package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout = 180 * time.Second // 画像生成は30〜60秒かかるため長めに取るのだ
	DefaultRateLimit   = 10 * time.Second

	DefaultPromptsDir  = "prompts"         // プロンプト（.txt）の格納先なのだ
	DefaultOutputsDir  = "outputs"         // 生成画像（.png）の格納先なのだ
	DefaultGalleryFile = "docs/index.html" // ギャラリーHTMLの固定出力先なのだ

	// DefaultAspectRatio と DefaultImageSize はポスター用途の固定パラメータなのだ。
	DefaultAspectRatio = "16:9"
	DefaultImageSize   = "4K"

	// DefaultPrintDPI は印刷用途のために PNG に刻む解像度なのだ。
	DefaultPrintDPI = 300
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiImageModel string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
// プロセス全体で一度だけ構築し、各コンポーネントへ明示的に渡して使うのだ。
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	PromptsDir  string // --prompts-dir
	OutputsDir  string // --outputs-dir
	GalleryFile string // --gallery-file

	ImageModel  string        // --image-model
	HTTPTimeout time.Duration // --http-timeout
}
