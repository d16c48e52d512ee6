// Command rbw is the stateless CLI entrypoint: it parses arguments,
// opens a session against the local replica and background agent, and
// dispatches to one of the command functions named in spec.md §6.
// Top-level wiring follows the teacher's example-pack sibling
// chirino-memory-service's main.go (urfave/cli/v3 Command tree).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/cliapp"
	"github.com/rbw-cli/rbw/internal/rlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "rbw",
		Usage: "Unofficial command-line client for a hosted password vault",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				rlog.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cliapp.ListCommand(),
			cliapp.GetCommand(),
			cliapp.SearchCommand(),
			cliapp.CodeCommand(),
			cliapp.AddCommand(),
			cliapp.GenerateCommand(),
			cliapp.EditCommand(),
			cliapp.RemoveCommand(),
			cliapp.HistoryCommand(),
			cliapp.LockCommand(),
			cliapp.UnlockCommand(),
			cliapp.UnlockedCommand(),
			cliapp.SyncCommand(),
			cliapp.PurgeCommand(),
			cliapp.ConfigShowCommand(),
			cliapp.ConfigSetCommand(),
			cliapp.ConfigUnsetCommand(),
			cliapp.RegisterCommand(),
			cliapp.LoginCommand(),
			cliapp.StopAgentCommand(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		rlog.Logger().Fatal(err)
	}
}
