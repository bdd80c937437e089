package cmd

import (
	"context"
	"fmt"

	"github.com/shouni/go-poster-kit/internal/builder"
	"github.com/shouni/go-poster-kit/internal/config"
	"github.com/shouni/go-poster-kit/internal/mcpserver"
	"github.com/shouni/go-poster-kit/internal/poster"

	"github.com/spf13/cobra"
)

// serveCmd は、画像生成とプロンプト閲覧を MCP ツールとして公開するのだ。
// API キーがなくても起動だけはできて、ツール呼び出し時にエラーを返すのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "MCPサーバとして標準入出力で待ち受けますなのだ。",
	Long: `generate_image と view_prompt の2つのツールを MCP クライアントに公開するのだ。
通信は標準入出力で行うので、クライアント側の設定にこのコマンドを登録するのだよ。`,
	RunE: serveCommand,
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	store, _, err := builder.InitializeStore(ctx, opts)
	if err != nil {
		return fmt.Errorf("アーカイブの初期化に失敗したのだ: %w", err)
	}

	srv := mcpserver.New(cfg, store, func(genCtx context.Context) (poster.Generator, error) {
		return builder.InitializeGenerator(genCtx, cfg)
	})

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("MCPサーバの実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
