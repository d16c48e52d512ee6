package cliapp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/config"
)

// ConfigShowCommand pretty-prints the local configuration.
func ConfigShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "config-show",
		Usage: "Show the local configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := configDir()
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg, err := config.Load(config.Paths{Dir: dir})
			if err != nil {
				return cli.Exit(err, 1)
			}
			b, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			fmt.Println(string(b))
			return nil
		},
	}
}

// ConfigSetCommand sets one configuration field.
func ConfigSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "config-set",
		Usage:     "Set a configuration value",
		ArgsUsage: "<field> <value>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			field, value := cmd.Args().Get(0), cmd.Args().Get(1)
			if field == "" || value == "" {
				return cli.Exit("a field and value are required", 1)
			}

			dir, err := configDir()
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg, err := config.Load(config.Paths{Dir: dir})
			if err != nil && err != config.ErrMissing {
				return cli.Exit(err, 1)
			}
			if err := cfg.Set(field, value); err != nil {
				return cli.Exit(err, 1)
			}
			if err := config.Save(config.Paths{Dir: dir}, cfg); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// ConfigUnsetCommand clears one configuration field.
func ConfigUnsetCommand() *cli.Command {
	return &cli.Command{
		Name:      "config-unset",
		Usage:     "Unset a configuration value",
		ArgsUsage: "<field>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			field := cmd.Args().First()
			if field == "" {
				return cli.Exit("a field is required", 1)
			}

			dir, err := configDir()
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg, err := config.Load(config.Paths{Dir: dir})
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err := cfg.Unset(field); err != nil {
				return cli.Exit(err, 1)
			}
			if err := config.Save(config.Paths{Dir: dir}, cfg); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
