package cliapp

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ListCommand prints every entry's display name, one per line.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession()
			if err != nil {
				return cli.Exit(err, 1)
			}
			pairs, err := s.loadPairs()
			if err != nil {
				return cli.Exit(err, 1)
			}

			folder := cmd.String("folder")
			for _, p := range pairs {
				if folder != "" {
					if p.Decrypted.Folder == nil || *p.Decrypted.Folder != folder {
						continue
					}
				}
				fmt.Println(p.Decrypted.DisplayName())
			}
			return nil
		},
	}
}
