package resolver_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/needle"
	"github.com/rbw-cli/rbw/internal/resolver"
)

func strPtr(s string) *string { return &s }

func loginPair(id, name, username string) resolver.Pair {
	u := username
	return resolver.Pair{
		Encrypted: cipher.EncryptedEntry{ID: id, Name: name, Kind: cipher.KindLogin},
		Decrypted: &cipher.DecryptedCipher{
			ID:   id,
			Name: name,
			Kind: cipher.KindLogin,
			Login: &cipher.LoginData{
				Username: &u,
			},
		},
	}
}

func TestResolveExactNameMatch(t *testing.T) {
	entries := []resolver.Pair{
		loginPair(uuid.NewString(), "github", "alice"),
		loginPair(uuid.NewString(), "gitlab", "alice"),
	}
	got, err := resolver.Resolve(entries, needle.Parse("github"), resolver.Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Decrypted.Name != "github" {
		t.Fatalf("expected github, got %s", got.Decrypted.Name)
	}
}

func TestResolveByUUID(t *testing.T) {
	id := uuid.New()
	entries := []resolver.Pair{
		loginPair(id.String(), "github", "alice"),
		loginPair(uuid.NewString(), "gitlab", "alice"),
	}
	got, err := resolver.Resolve(entries, needle.Parse(id.String()), resolver.Options{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Encrypted.ID != id.String() {
		t.Fatalf("expected id %s, got %s", id, got.Encrypted.ID)
	}
}

func TestResolveNotFound(t *testing.T) {
	entries := []resolver.Pair{loginPair(uuid.NewString(), "github", "alice")}
	_, err := resolver.Resolve(entries, needle.Parse("nonexistent"), resolver.Options{})
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAmbiguousFallsThroughToPartialMatch(t *testing.T) {
	entries := []resolver.Pair{
		loginPair(uuid.NewString(), "github-work", "alice"),
		loginPair(uuid.NewString(), "github-personal", "bob"),
	}
	_, err := resolver.Resolve(entries, needle.Parse("github"), resolver.Options{})
	var ambiguous *resolver.AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if len(ambiguous.Names) != 2 {
		t.Fatalf("expected 2 ambiguous candidates, got %d", len(ambiguous.Names))
	}
}

func TestResolveUsernameDisambiguates(t *testing.T) {
	entries := []resolver.Pair{
		loginPair(uuid.NewString(), "github", "alice"),
		loginPair(uuid.NewString(), "github", "bob"),
	}
	got, err := resolver.Resolve(entries, needle.Parse("github"), resolver.Options{Username: strPtr("bob")})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if *got.Decrypted.Login.Username != "bob" {
		t.Fatalf("expected username bob, got %s", *got.Decrypted.Login.Username)
	}
}

func TestResolveFolderExactPresenceRequired(t *testing.T) {
	folder := "work"
	entries := []resolver.Pair{
		{
			Encrypted: cipher.EncryptedEntry{ID: uuid.NewString(), Name: "github", Kind: cipher.KindLogin},
			Decrypted: &cipher.DecryptedCipher{Name: "github", Kind: cipher.KindLogin, Folder: &folder, Login: &cipher.LoginData{}},
		},
		{
			Encrypted: cipher.EncryptedEntry{ID: uuid.NewString(), Name: "github", Kind: cipher.KindLogin},
			Decrypted: &cipher.DecryptedCipher{Name: "github", Kind: cipher.KindLogin, Login: &cipher.LoginData{}},
		},
	}
	got, err := resolver.Resolve(entries, needle.Parse("github"), resolver.Options{Folder: &folder})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Decrypted.Folder == nil || *got.Decrypted.Folder != "work" {
		t.Fatalf("expected folder-qualified match, got %+v", got.Decrypted.Folder)
	}
}

func TestResolveIgnoreCaseAcceptsEitherForm(t *testing.T) {
	entries := []resolver.Pair{loginPair(uuid.NewString(), "GitHub", "alice")}
	got, err := resolver.Resolve(entries, needle.Parse("github"), resolver.Options{IgnoreCase: true})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Decrypted.Name != "GitHub" {
		t.Fatalf("expected GitHub, got %s", got.Decrypted.Name)
	}
}
