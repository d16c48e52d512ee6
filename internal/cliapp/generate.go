package cliapp

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/pwgen"
)

// GenerateCommand prints a freshly generated random password. When a
// name argument is given it additionally persists a new Login entry with
// that password, mirroring the upstream behavior of "generate" doubling
// as a save-on-create shortcut.
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a password",
		ArgsUsage: "[name] [username]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "len", Value: 20},
			&cli.BoolFlag{Name: "no-symbols"},
			&cli.StringFlag{Name: "folder"},
			&cli.BoolFlag{Name: "clipboard", Aliases: []string{"c"}},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			typ := pwgen.TypeAllChars
			if cmd.Bool("no-symbols") {
				typ = pwgen.TypeNoSymbols
			}

			password, err := pwgen.Generate(typ, int(cmd.Int("len")))
			if err != nil {
				return cli.Exit(fmt.Errorf("couldn't generate password: %w", err), 1)
			}

			router := newRouter(cmd.Bool("clipboard"), nil)
			if !router.Emit(password) {
				return cli.Exit("", 1)
			}

			name := cmd.Args().Get(0)
			if name == "" {
				return nil
			}
			username := cmd.Args().Get(1)

			return saveGeneratedEntry(name, username, password, cmd.String("folder"))
		},
	}
}
