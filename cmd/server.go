package cmd

import (
	"context"
	"fmt"

	"github.com/maitreyyi/SANA-Development-sub001/internal/config"
	"github.com/maitreyyi/SANA-Development-sub001/internal/server"
	"github.com/urfave/cli/v3"
)

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the alignment job server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Base directory for job working directories and the user database",
				Sources: cli.EnvVars("SANA_DATA_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.String("data-dir"); v != "" {
				cfg.ApplyDataDir(v)
			}

			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
