// Package config loads and saves the local rbw configuration file: the
// only process-wide state the core treats as read-only input (spec.md
// §5). Persistence follows the teacher's atomic-write-then-rename
// discipline (store/vaultfs.go's SaveVaultHeader).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const filename = "config.json"

// ErrMissing indicates the user has not set an email yet; callers
// report it as-is, and its message names the missing field
// (spec.md §7, "Config missing").
var ErrMissing = errors.New("config missing: email is not set")

// Config is the local client configuration. Pin/server fields mirror
// the upstream rbw config surface; LockTimeout and PinAgainstHIBP are
// advisory for the commands that surround the resolver core.
type Config struct {
	Email            string  `json:"email,omitempty"`
	SSOID            *string `json:"sso_id,omitempty"`
	BaseURL          string  `json:"base_url,omitempty"`
	IdentityURL      *string `json:"identity_url,omitempty"`
	ClientCertPath   *string `json:"client_cert_path,omitempty"`
	LockTimeout      int     `json:"lock_timeout_seconds,omitempty"`
	SyncInterval     int     `json:"sync_interval_seconds,omitempty"`
	PinAgainstHIBP   bool    `json:"pin_against_hibp,omitempty"`
	QuickUnlock      bool    `json:"quick_unlock,omitempty"`
}

// Paths locates the config file on disk.
type Paths struct {
	Dir string
}

func (p Paths) path() string {
	return filepath.Join(p.Dir, filename)
}

// Load reads config.json. A missing file is reported as ErrMissing
// rather than the raw os.ErrNotExist, since the caller's next step is
// always the same standing help message.
func Load(p Paths) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(p.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, ErrMissing
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Email == "" {
		return cfg, ErrMissing
	}
	return cfg, nil
}

// Save persists cfg atomically: write to a sibling temp file, set its
// permissions to 0600, then rename over the target.
func Save(p Paths, cfg Config) error {
	if p.Dir == "" {
		return errors.New("config directory not specified")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(p.Dir, "config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpPath, p.path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// ServerName derives the short identifier under which the local
// database for this config is keyed, mirroring rbw's per-server
// database namespacing.
func (c Config) ServerName() string {
	if c.BaseURL == "" {
		return "default"
	}
	return c.BaseURL
}

// Set applies one "rbw config-set <field> <value>" mutation by field
// name, returning an error for unrecognized fields.
func (c *Config) Set(field, value string) error {
	switch field {
	case "email":
		c.Email = value
	case "base_url":
		c.BaseURL = value
	case "identity_url":
		c.IdentityURL = &value
	case "client_cert_path":
		c.ClientCertPath = &value
	case "quick_unlock":
		c.QuickUnlock = value == "true"
	default:
		return fmt.Errorf("unknown config field %q", field)
	}
	return nil
}

// Unset clears one field back to its zero value.
func (c *Config) Unset(field string) error {
	switch field {
	case "email":
		c.Email = ""
	case "base_url":
		c.BaseURL = ""
	case "identity_url":
		c.IdentityURL = nil
	case "client_cert_path":
		c.ClientCertPath = nil
	case "quick_unlock":
		c.QuickUnlock = false
	default:
		return fmt.Errorf("unknown config field %q", field)
	}
	return nil
}
