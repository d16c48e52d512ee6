package cliapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// SearchCommand lists every entry whose decrypted name contains the
// given substring (case-insensitive), unlike get's single-hit resolve.
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "List entries matching a search term",
		ArgsUsage: "<term>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			term := cmd.Args().First()
			if term == "" {
				return cli.Exit("a search term is required", 1)
			}

			s, err := openSession()
			if err != nil {
				return cli.Exit(err, 1)
			}
			pairs, err := s.loadPairs()
			if err != nil {
				return cli.Exit(err, 1)
			}

			needle := strings.ToLower(term)
			for _, p := range pairs {
				if strings.Contains(strings.ToLower(p.Decrypted.Name), needle) {
					fmt.Println(p.Decrypted.DisplayName())
				}
			}
			return nil
		},
	}
}
