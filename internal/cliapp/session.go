// Package cliapp wires the core components (cipher, needle, resolver,
// uri, totp, display, editor) into the rbw command surface named in
// spec.md §6. Command layout and the urfave/cli/v3 Command()-per-verb
// convention are grounded on chirino-memory-service's internal/cmd
// packages (serve.Command(), migrate.Command()).
package cliapp

import (
	"fmt"
	"os"

	"github.com/rbw-cli/rbw/internal/agentclient"
	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/clipboard"
	"github.com/rbw-cli/rbw/internal/config"
	"github.com/rbw-cli/rbw/internal/cryptoadapt"
	"github.com/rbw-cli/rbw/internal/display"
	"github.com/rbw-cli/rbw/internal/localdb"
	"github.com/rbw-cli/rbw/internal/resolver"
	"github.com/rbw-cli/rbw/internal/rlog"
)

// session bundles the collaborators a command needs: loaded config,
// local db handle, and a decryptor backed by the agent's cached key.
// Built fresh for each CLI invocation, per spec.md §5's "the CLI
// itself is stateless between invocations" -- the only thing that
// survives across invocations is the session token cached on disk by
// agentclient.SaveToken, which is how a stateless process re-proves to
// the long-lived agent that it's allowed to read the unlocked key.
type session struct {
	cfg    config.Config
	db     *localdb.Db
	crypto *cryptoadapt.Adapter
	agent  *agentclient.Client
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home + "/.config/rbw", nil
}

func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home + "/.local/share/rbw", nil
}

// openSession loads config, opens the local replica, and fetches the
// unlocked user key from the agent. Commands that only read the
// config (config_show) or only talk to the agent (lock/unlocked) use
// narrower helpers instead.
func openSession() (*session, error) {
	cDir, err := configDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.Paths{Dir: cDir})
	if err != nil {
		return nil, err
	}

	dDir, err := dataDir()
	if err != nil {
		return nil, err
	}
	db, err := localdb.Load(dDir, cfg.ServerName(), cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	token, err := agentclient.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("load cached session token: %w", err)
	}
	agent := &agentclient.Client{SocketPath: agentclient.SocketPath(), Token: token}
	userKey, err := agent.GetKey()
	if err != nil {
		_ = agentclient.ClearToken()
		return nil, fmt.Errorf("vault is locked: %w", err)
	}

	return &session{
		cfg:    cfg,
		db:     db,
		crypto: &cryptoadapt.Adapter{UserKey: userKey},
		agent:  agent,
	}, nil
}

// loadPairs decrypts every entry in the local replica, skipping (with
// a warning) any whose name fails to decrypt — C2's fatal-per-entry
// failure degrades to "drop this entry" at the command level rather
// than aborting the whole listing, since one corrupt entry shouldn't
// block access to the rest of the vault.
func (s *session) loadPairs() ([]resolver.Pair, error) {
	entries, err := s.db.Entries()
	if err != nil {
		return nil, err
	}

	pairs := make([]resolver.Pair, 0, len(entries))
	for _, e := range entries {
		dec, err := cipher.Project(s.crypto, e)
		if err != nil {
			rlog.Logger().Warn("couldn't decrypt entry, skipping", "id", e.ID, "err", err)
			continue
		}
		pairs = append(pairs, resolver.Pair{Encrypted: e, Decrypted: dec})
	}
	return pairs, nil
}

func newRouter(toClipboard bool, sink display.Sink) *display.Router {
	if sink == nil {
		sink = clipboard.Local{}
	}
	return &display.Router{
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		Sink:        sink,
		ToClipboard: toClipboard,
	}
}
