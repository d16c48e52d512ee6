package cliapp

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/needle"
	"github.com/rbw-cli/rbw/internal/resolver"
	"github.com/rbw-cli/rbw/internal/rlog"
	"github.com/rbw-cli/rbw/internal/totp"
)

// CodeCommand resolves an entry and prints (or copies) its current
// TOTP code, per spec.md §2's "decrypted login's totp field -> C6 ->
// code -> C7" data flow.
func CodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "code",
		Usage:     "Compute a 2FA code",
		ArgsUsage: "<needle>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user"},
			&cli.StringFlag{Name: "folder"},
			&cli.BoolFlag{Name: "clipboard", Aliases: []string{"c"}},
			&cli.BoolFlag{Name: "ignore-case"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			desc := cmd.Args().First()
			if desc == "" {
				return cli.Exit("a needle is required", 1)
			}

			s, err := openSession()
			if err != nil {
				return cli.Exit(err, 1)
			}
			pairs, err := s.loadPairs()
			if err != nil {
				return cli.Exit(err, 1)
			}

			opts := resolver.Options{IgnoreCase: cmd.Bool("ignore-case")}
			if v := cmd.String("user"); v != "" {
				opts.Username = &v
			}
			if v := cmd.String("folder"); v != "" {
				opts.Folder = &v
			}

			pair, err := resolver.Resolve(pairs, needle.Parse(desc), opts)
			if err != nil {
				return cli.Exit(resolveErrMessage(desc, err), 1)
			}

			if pair.Decrypted.Kind != cipher.KindLogin || pair.Decrypted.Login == nil || pair.Decrypted.Login.TOTP == nil {
				rlog.Logger().Error("entry has no totp secret", "entry", desc)
				return cli.Exit("", 1)
			}

			params, err := totp.Parse(*pair.Decrypted.Login.TOTP)
			if err != nil {
				return cli.Exit(fmt.Errorf("couldn't parse totp secret: %w", err), 1)
			}
			code, err := totp.Now(params)
			if err != nil {
				return cli.Exit(fmt.Errorf("couldn't generate totp code: %w", err), 1)
			}

			router := newRouter(cmd.Bool("clipboard"), nil)
			if !router.Emit(code) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
