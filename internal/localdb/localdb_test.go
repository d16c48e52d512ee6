package localdb_test

import (
	"testing"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/localdb"
)

func sampleEntry(id, name string) cipher.EncryptedEntry {
	user := "alice"
	login := &cipher.EncryptedLoginData{Username: &user}
	return cipher.EncryptedEntry{ID: id, Name: name, Kind: cipher.KindLogin, Login: login}
}

func TestLoadCreatesDatabaseFile(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty replica on first load, got %d entries", len(entries))
	}
}

func TestSaveReplacesFullEntrySet(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Save([]cipher.EncryptedEntry{sampleEntry("1", "github"), sampleEntry("2", "gitlab")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// A second Save with a smaller set must fully replace, not merge.
	if err := db.Save([]cipher.EncryptedEntry{sampleEntry("3", "bitbucket")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entries, err = db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "3" {
		t.Fatalf("expected Save to replace the full set, got %+v", entries)
	}
}

func TestEntriesRoundTripsLoginPayload(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Save([]cipher.EncryptedEntry{sampleEntry("1", "github")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Login == nil || entries[0].Login.Username == nil || *entries[0].Login.Username != "alice" {
		t.Fatalf("expected round-tripped login payload with username alice, got %+v", entries)
	}
}

func TestRemoveDeletesOneEntry(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Save([]cipher.EncryptedEntry{sampleEntry("1", "github"), sampleEntry("2", "gitlab")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := db.Remove("1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "2" {
		t.Fatalf("expected only entry 2 to remain, got %+v", entries)
	}
}

func TestRemoveMissingEntryErrors(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Remove("nonexistent"); err == nil {
		t.Fatalf("expected error removing a nonexistent entry")
	}
}

func TestPurgeClearsEntries(t *testing.T) {
	db, err := localdb.Load(t.TempDir(), "default", "alice@example.com")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Save([]cipher.EncryptedEntry{sampleEntry("1", "github")}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := db.Purge(); err != nil {
		t.Fatalf("Purge returned error: %v", err)
	}
	entries, err := db.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries after Purge, got %d", len(entries))
	}
}
