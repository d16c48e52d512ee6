// Package localdb is the Db collaborator (spec.md §6): the encrypted
// local replica of the user's vault, read-mostly with "re-read and
// overwrite" write semantics driven by the background agent. Schema
// and access patterns are adapted from the teacher's internal/db
// package (sqlite.go's Open/Migrate, entries.go's row CRUD), widened
// from a single flat passwords table to the full cipher entry shape.
package localdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"

	"github.com/rbw-cli/rbw/internal/cipher"
)

// Db wraps the per-server-name, per-email SQLite replica.
type Db struct {
	sql *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id          TEXT PRIMARY KEY,
	org_id      TEXT,
	folder      TEXT,
	folder_id   TEXT,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	login       TEXT,
	card        TEXT,
	identity    TEXT,
	fields      TEXT,
	notes       TEXT,
	history     TEXT,
	entry_key   TEXT,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS folders (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
`

// Load opens (creating if absent) the replica for one serverName/email
// pair, applying the schema migration.
func Load(dir, serverName, email string) (*Db, error) {
	path := filepath.Join(dir, serverName, email+".sqlite3")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := ensurePerm0600(path); err != nil {
		handle.Close()
		return nil, err
	}
	if _, err := handle.Exec(schema); err != nil {
		handle.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Db{sql: handle}, nil
}

func ensurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod database: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (d *Db) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Entries returns every encrypted entry currently replicated locally.
func (d *Db) Entries() ([]cipher.EncryptedEntry, error) {
	rows, err := d.sql.Query(`
		SELECT id, org_id, folder, folder_id, name, kind, login, card, identity, fields, notes, history, entry_key
		FROM entries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var out []cipher.EncryptedEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (cipher.EncryptedEntry, error) {
	var e cipher.EncryptedEntry
	var kind string
	var loginJSON, cardJSON, identityJSON, fieldsJSON, historyJSON sql.NullString

	if err := row.Scan(
		&e.ID, &e.OrgID, &e.Folder, &e.FolderID, &e.Name, &kind,
		&loginJSON, &cardJSON, &identityJSON, &fieldsJSON, &e.Notes, &historyJSON, &e.Key,
	); err != nil {
		return e, fmt.Errorf("scan entry row: %w", err)
	}
	e.Kind = cipher.Kind(kind)

	if loginJSON.Valid {
		var l cipher.EncryptedLoginData
		if err := json.Unmarshal([]byte(loginJSON.String), &l); err != nil {
			return e, fmt.Errorf("decode login payload for entry %s: %w", e.ID, err)
		}
		e.Login = &l
	}
	if cardJSON.Valid {
		var c cipher.EncryptedCardData
		if err := json.Unmarshal([]byte(cardJSON.String), &c); err != nil {
			return e, fmt.Errorf("decode card payload for entry %s: %w", e.ID, err)
		}
		e.Card = &c
	}
	if identityJSON.Valid {
		var id cipher.EncryptedIdentityData
		if err := json.Unmarshal([]byte(identityJSON.String), &id); err != nil {
			return e, fmt.Errorf("decode identity payload for entry %s: %w", e.ID, err)
		}
		e.Identity = &id
	}
	if fieldsJSON.Valid {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &e.Fields); err != nil {
			return e, fmt.Errorf("decode fields for entry %s: %w", e.ID, err)
		}
	}
	if historyJSON.Valid {
		if err := json.Unmarshal([]byte(historyJSON.String), &e.History); err != nil {
			return e, fmt.Errorf("decode history for entry %s: %w", e.ID, err)
		}
	}
	return e, nil
}

// Save replaces the full entry set, mirroring the "re-read and
// overwrite" semantics spec.md §5 assigns to agent-driven sync: the
// core never performs incremental writes itself.
func (d *Db) Save(entries []cipher.EncryptedEntry) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (id, org_id, folder, folder_id, name, kind, login, card, identity, fields, notes, history, entry_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		loginJSON, cardJSON, identityJSON, fieldsJSON, historyJSON, err := marshalPayloads(e)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			e.ID, e.OrgID, e.Folder, e.FolderID, e.Name, string(e.Kind),
			loginJSON, cardJSON, identityJSON, fieldsJSON, e.Notes, historyJSON, e.Key,
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func marshalJSON(v any) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func marshalPayloads(e cipher.EncryptedEntry) (login, card, identity, fields, history *string, err error) {
	if e.Login != nil {
		if login, err = marshalJSON(e.Login); err != nil {
			return
		}
	}
	if e.Card != nil {
		if card, err = marshalJSON(e.Card); err != nil {
			return
		}
	}
	if e.Identity != nil {
		if identity, err = marshalJSON(e.Identity); err != nil {
			return
		}
	}
	if len(e.Fields) > 0 {
		if fields, err = marshalJSON(e.Fields); err != nil {
			return
		}
	}
	if len(e.History) > 0 {
		if history, err = marshalJSON(e.History); err != nil {
			return
		}
	}
	return
}

// Remove deletes one entry by id.
func (d *Db) Remove(id string) error {
	res, err := d.sql.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

// Purge drops every locally replicated entry and folder.
func (d *Db) Purge() error {
	if _, err := d.sql.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("purge entries: %w", err)
	}
	if _, err := d.sql.Exec(`DELETE FROM folders`); err != nil {
		return fmt.Errorf("purge folders: %w", err)
	}
	return nil
}
