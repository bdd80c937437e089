package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-poster-kit/internal/builder"

	"github.com/spf13/cobra"
)

// galleryCmd は、アーカイブを走査して静的なギャラリー HTML を再生成するのだ。
var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "アーカイブから静的ギャラリーHTMLを生成しますなのだ。",
	Long: `outputs/ の画像と prompts/ のプロンプトを突き合わせ、1枚の静的 HTML にまとめるのだ。
対応するプロンプトが見つからない画像はギャラリーに載らないのだよ。`,
	RunE: galleryCommand,
}

func galleryCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	renderer, err := builder.InitializeGalleryRenderer(ctx, opts)
	if err != nil {
		return fmt.Errorf("ギャラリー生成器の初期化に失敗したのだ: %w", err)
	}

	count, err := renderer.Render(ctx)
	if err != nil {
		return fmt.Errorf("ギャラリーの生成に失敗したのだ: %w", err)
	}

	slog.Info("ギャラリー生成が完了したのだ！",
		"entries", count,
		"output", opts.GalleryFile)

	fmt.Printf("✓ Gallery generated successfully!\n✓ Found %d images\n✓ Output: %s\n", count, opts.GalleryFile)
	return nil
}
