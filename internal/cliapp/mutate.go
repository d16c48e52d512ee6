package cliapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/editor"
	"github.com/rbw-cli/rbw/internal/needle"
	"github.com/rbw-cli/rbw/internal/resolver"
)

// saveGeneratedEntry persists a new Login entry with the given
// plaintext fields, re-reading and overwriting the full local replica
// per spec.md §5's write semantics.
func saveGeneratedEntry(name, username, password, folder string) error {
	s, err := openSession()
	if err != nil {
		return cli.Exit(err, 1)
	}

	entries, err := s.db.Entries()
	if err != nil {
		return cli.Exit(err, 1)
	}

	encName, err := s.crypto.Encrypt(name, nil)
	if err != nil {
		return cli.Exit(fmt.Errorf("couldn't encrypt entry: %w", err), 1)
	}
	encPassword, err := s.crypto.Encrypt(password, nil)
	if err != nil {
		return cli.Exit(fmt.Errorf("couldn't encrypt entry: %w", err), 1)
	}
	login := &cipher.EncryptedLoginData{Password: &encPassword}
	if username != "" {
		encUsername, err := s.crypto.Encrypt(username, nil)
		if err != nil {
			return cli.Exit(fmt.Errorf("couldn't encrypt entry: %w", err), 1)
		}
		login.Username = &encUsername
	}

	var folderPtr *string
	if folder != "" {
		encFolder, err := s.crypto.Encrypt(folder, nil)
		if err != nil {
			return cli.Exit(fmt.Errorf("couldn't encrypt entry: %w", err), 1)
		}
		folderPtr = &encFolder
	}

	entries = append(entries, cipher.EncryptedEntry{
		ID:     uuid.NewString(),
		Folder: folderPtr,
		Name:   encName,
		Kind:   cipher.KindLogin,
		Login:  login,
	})

	if err := s.db.Save(entries); err != nil {
		return cli.Exit(fmt.Errorf("couldn't save entry: %w", err), 1)
	}
	return nil
}

// AddCommand creates a new Login entry, reading the password from the
// user's $EDITOR buffer via the C8 editor parser.
func AddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a new entry",
		ArgsUsage: "<name> [username]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return cli.Exit("a name is required", 1)
			}
			username := cmd.Args().Get(1)

			buffer, err := editBuffer("")
			if err != nil {
				return cli.Exit(err, 1)
			}
			password, notes := editor.Parse(buffer)
			if password == nil {
				return cli.Exit("a password is required", 1)
			}

			s, err := openSession()
			if err != nil {
				return cli.Exit(err, 1)
			}
			entries, err := s.db.Entries()
			if err != nil {
				return cli.Exit(err, 1)
			}

			encName, err := s.crypto.Encrypt(name, nil)
			if err != nil {
				return cli.Exit(err, 1)
			}
			encPassword, err := s.crypto.Encrypt(*password, nil)
			if err != nil {
				return cli.Exit(err, 1)
			}
			login := &cipher.EncryptedLoginData{Password: &encPassword}
			if username != "" {
				encUsername, err := s.crypto.Encrypt(username, nil)
				if err != nil {
					return cli.Exit(err, 1)
				}
				login.Username = &encUsername
			}

			var notesPtr *string
			if notes != nil {
				encNotes, err := s.crypto.Encrypt(*notes, nil)
				if err != nil {
					return cli.Exit(err, 1)
				}
				notesPtr = &encNotes
			}

			var folderPtr *string
			if f := cmd.String("folder"); f != "" {
				encFolder, err := s.crypto.Encrypt(f, nil)
				if err != nil {
					return cli.Exit(err, 1)
				}
				folderPtr = &encFolder
			}

			entries = append(entries, cipher.EncryptedEntry{
				ID:     uuid.NewString(),
				Folder: folderPtr,
				Name:   encName,
				Kind:   cipher.KindLogin,
				Login:  login,
				Notes:  notesPtr,
			})

			if err := s.db.Save(entries); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// EditCommand opens the resolved entry's current password/notes in
// $EDITOR and re-encrypts whatever the user saved.
func EditCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit an existing entry",
		ArgsUsage: "<needle>",
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

			pair, err := resolver.Resolve(pairs, needle.Parse(desc), resolver.Options{})
			if err != nil {
				return cli.Exit(resolveErrMessage(desc, err), 1)
			}
			if pair.Decrypted.Kind != cipher.KindLogin || pair.Decrypted.Login == nil {
				return cli.Exit("only login entries can be edited this way", 1)
			}

			initial := ""
			if pair.Decrypted.Login.Password != nil {
				initial = *pair.Decrypted.Login.Password
			}
			if pair.Decrypted.Notes != nil {
				initial += "\n\n" + *pair.Decrypted.Notes
			}

			buffer, err := editBuffer(initial)
			if err != nil {
				return cli.Exit(err, 1)
			}
			password, notes := editor.Parse(buffer)

			entries, err := s.db.Entries()
			if err != nil {
				return cli.Exit(err, 1)
			}
			for i := range entries {
				if entries[i].ID != pair.Encrypted.ID {
					continue
				}
				if password != nil {
					if entries[i].Login != nil && entries[i].Login.Password != nil {
						entries[i].History = append([]cipher.EncryptedHistoryEntry{
							{LastUsedDate: time.Now(), Password: *entries[i].Login.Password},
						}, entries[i].History...)
					}
					encPassword, err := s.crypto.Encrypt(*password, entries[i].OrgID)
					if err != nil {
						return cli.Exit(err, 1)
					}
					if entries[i].Login == nil {
						entries[i].Login = &cipher.EncryptedLoginData{}
					}
					entries[i].Login.Password = &encPassword
				}
				if notes != nil {
					encNotes, err := s.crypto.Encrypt(*notes, entries[i].OrgID)
					if err != nil {
						return cli.Exit(err, 1)
					}
					entries[i].Notes = &encNotes
				}
				break
			}

			if err := s.db.Save(entries); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// RemoveCommand resolves an entry and deletes it from the local replica.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove an entry",
		ArgsUsage: "<needle>",
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

			pair, err := resolver.Resolve(pairs, needle.Parse(desc), resolver.Options{})
			if err != nil {
				return cli.Exit(resolveErrMessage(desc, err), 1)
			}

			if err := s.db.Remove(pair.Encrypted.ID); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// HistoryCommand prints every previous password for an entry, newest
// first. EditCommand prepends to History, so stored order already
// matches.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show password history for an entry",
		ArgsUsage: "<needle>",
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

			pair, err := resolver.Resolve(pairs, needle.Parse(desc), resolver.Options{})
			if err != nil {
				return cli.Exit(resolveErrMessage(desc, err), 1)
			}

			for _, h := range pair.Decrypted.History {
				fmt.Printf("%s: %s\n", h.LastUsedDate.Format("2006-01-02T15:04:05Z07:00"), h.Password)
			}
			return nil
		},
	}
}
