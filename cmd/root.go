package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "sanaserv",
		Version: version,
		Usage:   "Self-hosted SANA network alignment service. Upload two networks, run the aligner, download the results.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("SANASERV_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("SANASERV_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
}
