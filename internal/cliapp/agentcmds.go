package cliapp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/rbw-cli/rbw/internal/agentclient"
	"github.com/rbw-cli/rbw/internal/config"
	"github.com/rbw-cli/rbw/internal/rlog"
)

// ensureAgentRunning spawns the agent binary if its socket is
// unreachable, treating exit code 23 ("already running") as success
// per spec.md §6's "Environment" note.
func ensureAgentRunning() error {
	c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
	if _, err := c.Unlocked(); err == nil {
		return nil
	}

	cmd := exec.Command(agentclient.AgentPath())
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("couldn't start agent: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 23 {
				return
			}
		}
	}()
	return nil
}

func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// UnlockCommand derives and caches the vault key via the agent.
func UnlockCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Unlock the password database",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := ensureAgentRunning(); err != nil {
				return cli.Exit(err, 1)
			}
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			if token, err := c.QuickUnlock(); err == nil {
				return agentclient.SaveToken(token)
			}
			password, err := promptPassword("Master Password: ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			token, err := c.Unlock(password)
			if err != nil {
				return cli.Exit(fmt.Errorf("couldn't unlock vault: %w", err), 1)
			}
			return agentclient.SaveToken(token)
		},
	}
}

// LockCommand discards the agent's cached vault key.
func LockCommand() *cli.Command {
	return &cli.Command{
		Name:  "lock",
		Usage: "Lock the password database",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			if err := c.Lock(); err != nil {
				return cli.Exit(err, 1)
			}
			return agentclient.ClearToken()
		},
	}
}

// UnlockedCommand reports whether the agent currently holds a cached key.
func UnlockedCommand() *cli.Command {
	return &cli.Command{
		Name:  "unlocked",
		Usage: "Check if the agent has an unlocked vault key cached",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			ok, err := c.Unlocked()
			if err != nil {
				return cli.Exit(err, 1)
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// SyncCommand asks the agent to re-fetch and overwrite the local replica.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync the local database with the server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			if err := c.Sync(); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// LoginCommand performs the interactive login/registration handshake.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to the server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := ensureAgentRunning(); err != nil {
				return cli.Exit(err, 1)
			}
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			if err := c.Login(); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// RegisterCommand provisions a brand new vault: it prompts for (and
// confirms) a master password, has the agent validate it against
// policy and wrap a freshly generated user key under it, then leaves
// the vault unlocked under the returned session. Re-registering an
// already-provisioned vault is rejected by the agent.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register this device and initialize a new vault",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := ensureAgentRunning(); err != nil {
				return cli.Exit(err, 1)
			}

			dir, err := configDir()
			if err != nil {
				return cli.Exit(err, 1)
			}
			cfg, err := config.Load(config.Paths{Dir: dir})
			if err != nil && err != config.ErrMissing {
				return cli.Exit(err, 1)
			}
			email := cfg.Email
			if email == "" {
				fmt.Fprint(os.Stderr, "Email Address: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return cli.Exit(fmt.Errorf("read email: %w", err), 1)
				}
				email = strings.TrimSpace(line)
			}

			password, err := promptPassword("Master Password: ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			confirm, err := promptPassword("Confirm Master Password: ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			if password != confirm {
				return cli.Exit("passwords did not match", 1)
			}

			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			token, err := c.Provision(email, password)
			if err != nil {
				return cli.Exit(fmt.Errorf("couldn't register device: %w", err), 1)
			}
			if err := agentclient.SaveToken(token); err != nil {
				return cli.Exit(err, 1)
			}
			rlog.Logger().Info("vault initialized", "email", email)
			return nil
		},
	}
}

// StopAgentCommand asks the background agent to exit.
func StopAgentCommand() *cli.Command {
	return &cli.Command{
		Name:  "stop-agent",
		Usage: "Stop the background agent",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := &agentclient.Client{SocketPath: agentclient.SocketPath()}
			if err := c.Quit(); err != nil {
				return cli.Exit(err, 1)
			}
			return agentclient.ClearToken()
		},
	}
}

// PurgeCommand empties the local replica entirely, requiring a
// following sync to repopulate it.
func PurgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Purge the local database",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession()
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err := s.db.Purge(); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
