package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "imputation",
		Version: version,
		Usage:   "Genome imputation job service — upload a genome file, run the imputation engine, track and download the result.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("IMPUTATION_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("IMPUTATION_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
}
