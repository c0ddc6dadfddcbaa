package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpis/persona-genesis/cmd/persona-genesis/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "persona-genesis",
		Usage: "監督付きペルソナ生成パイプライン (収集 → 生成 → 人手レビュー → コミット)",
		Commands: []*cli.Command{
			{
				Name:  "genesis",
				Usage: "ペルソナ生成ジョブ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "新しい生成ジョブを開始し、最初のドラフトまで進める",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "name",
								Usage:    "ペルソナ名",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "inspiration",
								Usage: "インスピレーション元（公開ペルソナの場合はWeb収集の検索語）",
							},
							&cli.StringFlag{
								Name:  "language",
								Usage: "ペルソナの言語コード",
								Value: "en",
							},
							&cli.BoolFlag{
								Name:  "public",
								Usage: "公開人物ペルソナとしてWebチャネルを有効化",
							},
							&cli.StringFlag{
								Name:  "public-name",
								Usage: "公開人物の正式名称（省略時はペルソナ名）",
							},
							&cli.StringFlag{
								Name:  "folder",
								Usage: "収集対象ドキュメントフォルダのID",
							},
							&cli.StringFlag{
								Name:  "notes",
								Usage: "ジョブに添える補足メモ",
							},
							&cli.StringSliceFlag{
								Name:  "text",
								Usage: "インラインのテキストソース（複数指定可）",
							},
						},
						Action: commands.GenesisStartAction,
					},
					{
						Name:  "status",
						Usage: "ジョブの状態と進捗を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "job",
								Usage:    "ジョブID",
								Required: true,
							},
						},
						Action: commands.GenesisStatusAction,
					},
					{
						Name:  "approve",
						Usage: "承認待ちドラフトへ編集を適用し、次のドラフトを作成",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "job",
								Usage:    "ジョブID",
								Required: true,
							},
							&cli.IntFlag{
								Name:     "draft",
								Usage:    "編集対象のドラフト番号",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "edits",
								Usage: "編集バッチ（JSON配列）",
							},
							&cli.StringFlag{
								Name:  "edits-file",
								Usage: "編集バッチを記述したJSONファイルのパス",
							},
						},
						Action: commands.GenesisApproveAction,
					},
					{
						Name:  "confirm",
						Usage: "承認待ちドラフトを確定し、ペルソナをコミット",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "job",
								Usage:    "ジョブID",
								Required: true,
							},
							&cli.IntFlag{
								Name:     "draft",
								Usage:    "確定対象のドラフト番号",
								Required: true,
							},
						},
						Action: commands.GenesisConfirmAction,
					},
					{
						Name:  "audit",
						Usage: "ジョブの監査ログを時系列で表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "job",
								Usage:    "ジョブID",
								Required: true,
							},
						},
						Action: commands.GenesisAuditAction,
					},
				},
			},
			{
				Name:  "persona",
				Usage: "コミット済みペルソナ管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "ペルソナ一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.PersonaListAction,
					},
					{
						Name:  "show",
						Usage: "ペルソナ詳細とアクティブバージョンのコアを表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "slug",
								Usage:    "ペルソナのスラグ",
								Required: true,
							},
						},
						Action: commands.PersonaShowAction,
					},
					{
						Name:  "export",
						Usage: "ペルソナのファイルツリーを再出力",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "slug",
								Usage:    "ペルソナのスラグ",
								Required: true,
							},
						},
						Action: commands.PersonaExportAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
