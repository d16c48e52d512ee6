package cliapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/needle"
	"github.com/rbw-cli/rbw/internal/phishguard"
	"github.com/rbw-cli/rbw/internal/resolver"
	"github.com/rbw-cli/rbw/internal/rlog"
)

// GetCommand implements the central read operation (spec.md §2's data
// flow: needle -> C4 -> resolver -> C7). Flag precedence is
// --raw > --full > --field, per spec.md §6.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Display a password or other entry data",
		ArgsUsage: "<needle>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user"},
			&cli.StringFlag{Name: "folder"},
			&cli.StringFlag{Name: "field"},
			&cli.BoolFlag{Name: "full"},
			&cli.BoolFlag{Name: "raw"},
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

			warnLookalikeDomains(pairs, desc, pair.Encrypted.ID)

			router := newRouter(cmd.Bool("clipboard"), nil)

			var ok bool
			switch {
			case cmd.Bool("raw"):
				if err := router.JSON(pair.Decrypted); err != nil {
					return cli.Exit(err, 1)
				}
				ok = true
			case cmd.Bool("full"):
				ok = router.Long(pair.Decrypted, desc)
			case cmd.String("field") != "":
				ok = router.Field(pair.Decrypted, cmd.String("field"), desc)
			default:
				ok = router.Short(pair.Decrypted, desc)
			}

			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// warnLookalikeDomains flags saved Login URIs that are a visual
// near-miss of the needle the user just resolved against, e.g. a
// homoglyph or punycode domain that slipped into the vault. It only
// fires when the needle itself looks like a host or URL, and it never
// blocks the get — it's advisory, printed once per suspicious URI.
func warnLookalikeDomains(pairs []resolver.Pair, desc, matchedID string) {
	if !strings.Contains(desc, ".") && !strings.Contains(desc, "://") {
		return
	}
	needleETLD1, err := phishguard.ETLD1(desc)
	if err != nil {
		return
	}

	for _, p := range pairs {
		if p.Encrypted.ID == matchedID || p.Decrypted.Login == nil {
			continue
		}
		for _, u := range p.Decrypted.Login.URIs {
			candidateETLD1, err := phishguard.ETLD1(u.URI)
			if err != nil {
				continue
			}
			if reasons := phishguard.Reasons(needleETLD1, candidateETLD1); len(reasons) > 0 {
				rlog.Logger().Warn("saved entry has a look-alike domain", "entry", p.Decrypted.DisplayName(), "domain", candidateETLD1, "reasons", strings.Join(reasons, ","))
			}
		}
	}
}

func resolveErrMessage(desc string, err error) string {
	var amb *resolver.AmbiguousError
	if errors.As(err, &amb) {
		return fmt.Sprintf("couldn't find entry for '%s': %s", desc, err.Error())
	}
	return fmt.Sprintf("couldn't find entry for '%s'", desc)
}
