package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/CourageResearch/imputation/internal/config"
	"github.com/CourageResearch/imputation/internal/server"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the imputation API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "upload-dir",
				Usage:   "Directory for uploaded genome files",
				Sources: cli.EnvVars("IMP_STORAGE_UPLOAD_DIR"),
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Usage:   "Directory for per-job results",
				Sources: cli.EnvVars("IMP_STORAGE_RESULTS_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if cmd.Root().String("log-level") != "" {
				cfg.Logging.Level = cmd.Root().String("log-level")
			}
			if v := cmd.String("upload-dir"); v != "" {
				cfg.Storage.UploadDir = v
			}
			if v := cmd.String("results-dir"); v != "" {
				cfg.Storage.ResultsDir = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
