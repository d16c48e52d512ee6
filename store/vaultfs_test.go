package store_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/rbw-cli/rbw/internal/vault"
	"github.com/rbw-cli/rbw/krypto"
	"github.com/rbw-cli/rbw/store"
)

func newHeader(t *testing.T, kdfName string) (vault.VaultHeader, []byte) {
	t.Helper()
	salt, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}

	var kdf vault.KDFConfig
	var pdk []byte
	switch kdfName {
	case "argon2id":
		p := krypto.DefaultArgon2Params()
		kdf = vault.KDFConfig{Name: "argon2id", MemoryMB: p.MemoryMB, Time: p.Time, Parallelism: p.Parallelism, SaltLen: p.SaltLen, KeyLen: p.KeyLen}
		pdk, err = krypto.DeriveKeyArgon2id([]byte("master password"), salt, p)
	case "pbkdf2sha256":
		p := krypto.DefaultPBKDF2Params()
		kdf = vault.KDFConfig{Name: "pbkdf2sha256", Time: p.Iterations, KeyLen: p.KeyLen}
		pdk, err = krypto.DeriveKeyPBKDF2([]byte("master password"), salt, p)
	}
	if err != nil {
		t.Fatalf("derive pdk: %v", err)
	}

	return vault.VaultHeader{Version: 1, User: "alice@example.com", KDF: kdf}, pdk
}

func TestWrapLoadUnwrapRoundTripArgon2id(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	hdr, pdk := newHeader(t, "argon2id")
	mek := bytes.Repeat([]byte{0x07}, 32)

	if err := store.WrapAndSaveMEK(p, hdr, pdk, mek); err != nil {
		t.Fatalf("WrapAndSaveMEK returned error: %v", err)
	}

	loaded, err := store.LoadVaultHeader(p)
	if err != nil {
		t.Fatalf("LoadVaultHeader returned error: %v", err)
	}
	if loaded.KDF.Name != "argon2id" {
		t.Fatalf("expected argon2id kdf name, got %q", loaded.KDF.Name)
	}

	got, _, err := store.LoadAndUnwrapMEK(p, pdk)
	if err != nil {
		t.Fatalf("LoadAndUnwrapMEK returned error: %v", err)
	}
	if !bytes.Equal(got, mek) {
		t.Fatalf("unwrapped MEK mismatch")
	}
}

func TestWrapLoadUnwrapRoundTripPBKDF2(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	hdr, pdk := newHeader(t, "pbkdf2sha256")
	mek := bytes.Repeat([]byte{0x09}, 32)

	if err := store.WrapAndSaveMEK(p, hdr, pdk, mek); err != nil {
		t.Fatalf("WrapAndSaveMEK returned error: %v", err)
	}

	got, _, err := store.LoadAndUnwrapMEK(p, pdk)
	if err != nil {
		t.Fatalf("LoadAndUnwrapMEK returned error: %v", err)
	}
	if !bytes.Equal(got, mek) {
		t.Fatalf("unwrapped MEK mismatch under pbkdf2sha256 header")
	}
}

func TestLoadAndUnwrapMEKRejectsWrongPDK(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	hdr, pdk := newHeader(t, "argon2id")
	mek := bytes.Repeat([]byte{0x01}, 32)
	if err := store.WrapAndSaveMEK(p, hdr, pdk, mek); err != nil {
		t.Fatalf("WrapAndSaveMEK returned error: %v", err)
	}

	wrongPDK := bytes.Repeat([]byte{0x02}, 32)
	if _, _, err := store.LoadAndUnwrapMEK(p, wrongPDK); err == nil {
		t.Fatalf("expected authentication failure unwrapping with the wrong PDK")
	}
}

func TestWrapAndSaveMEKRejectsUnsupportedKDF(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	hdr := vault.VaultHeader{Version: 1, KDF: vault.KDFConfig{Name: "scrypt"}}
	if err := store.WrapAndSaveMEK(p, hdr, bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32)); err == nil {
		t.Fatalf("expected error for unsupported kdf name")
	}
}

func TestLoadVaultHeaderMissingFileIsNotExist(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	if _, err := store.LoadVaultHeader(p); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestRewrapMEKUpdatesWrappedSecretInPlace(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	hdr, pdk := newHeader(t, "argon2id")
	mek := bytes.Repeat([]byte{0x05}, 32)
	if err := store.WrapAndSaveMEK(p, hdr, pdk, mek); err != nil {
		t.Fatalf("WrapAndSaveMEK returned error: %v", err)
	}
	loaded, err := store.LoadVaultHeader(p)
	if err != nil {
		t.Fatalf("LoadVaultHeader returned error: %v", err)
	}

	newSalt, _ := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	newPDK, err := krypto.DeriveKeyArgon2id([]byte("new password"), newSalt, krypto.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("derive new pdk: %v", err)
	}
	if err := store.RewrapMEK(p, loaded, newPDK, mek); err != nil {
		t.Fatalf("RewrapMEK returned error: %v", err)
	}

	got, _, err := store.LoadAndUnwrapMEK(p, newPDK)
	if err != nil {
		t.Fatalf("LoadAndUnwrapMEK returned error: %v", err)
	}
	if !bytes.Equal(got, mek) {
		t.Fatalf("expected MEK to survive rewrap under the new PDK")
	}
	if _, _, err := store.LoadAndUnwrapMEK(p, pdk); err == nil {
		t.Fatalf("expected the old PDK to no longer unwrap the MEK")
	}
}
