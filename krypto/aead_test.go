package krypto_test

import (
	"bytes"
	"testing"

	"github.com/rbw-cli/rbw/krypto"
)

func TestEncryptDecryptAESGCMRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	aad := []byte("header.mek")

	nonce, ciphertext, err := krypto.EncryptAESGCM(key, plaintext, aad)
	if err != nil {
		t.Fatalf("EncryptAESGCM returned error: %v", err)
	}

	got, err := krypto.DecryptAESGCM(key, nonce, ciphertext, aad)
	if err != nil {
		t.Fatalf("DecryptAESGCM returned error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestDecryptAESGCMRejectsTamperedCiphertext(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	nonce, ciphertext, err := krypto.EncryptAESGCM(key, []byte("secret payload"), nil)
	if err != nil {
		t.Fatalf("EncryptAESGCM returned error: %v", err)
	}
	ciphertext[0] ^= 0xff

	if _, err := krypto.DecryptAESGCM(key, nonce, ciphertext, nil); err == nil {
		t.Fatalf("expected authentication failure on tampered ciphertext")
	}
}

func TestDecryptAESGCMRejectsMismatchedAAD(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	nonce, ciphertext, err := krypto.EncryptAESGCM(key, []byte("secret payload"), []byte("one"))
	if err != nil {
		t.Fatalf("EncryptAESGCM returned error: %v", err)
	}
	if _, err := krypto.DecryptAESGCM(key, nonce, ciphertext, []byte("two")); err == nil {
		t.Fatalf("expected authentication failure with the wrong AAD")
	}
}

func TestEncryptAESGCMRejectsWrongKeyLength(t *testing.T) {
	if _, _, err := krypto.EncryptAESGCM([]byte("too-short"), []byte("data"), nil); err == nil {
		t.Fatalf("expected error for non-32-byte key")
	}
}
