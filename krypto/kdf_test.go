package krypto_test

import (
	"bytes"
	"testing"

	"github.com/rbw-cli/rbw/krypto"
)

func TestDeriveKeyArgon2idIsDeterministic(t *testing.T) {
	salt, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}
	params := krypto.DefaultArgon2Params()

	a, err := krypto.DeriveKeyArgon2id([]byte("correct horse battery staple"), salt, params)
	if err != nil {
		t.Fatalf("DeriveKeyArgon2id returned error: %v", err)
	}
	b, err := krypto.DeriveKeyArgon2id([]byte("correct horse battery staple"), salt, params)
	if err != nil {
		t.Fatalf("DeriveKeyArgon2id returned error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical derivation for identical inputs")
	}
	if len(a) != int(params.KeyLen) {
		t.Fatalf("expected key length %d, got %d", params.KeyLen, len(a))
	}
}

func TestDeriveKeyArgon2idDifferentSaltsDiffer(t *testing.T) {
	salt1, _ := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	salt2, _ := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	params := krypto.DefaultArgon2Params()

	a, err := krypto.DeriveKeyArgon2id([]byte("password"), salt1, params)
	if err != nil {
		t.Fatalf("DeriveKeyArgon2id returned error: %v", err)
	}
	b, err := krypto.DeriveKeyArgon2id([]byte("password"), salt2, params)
	if err != nil {
		t.Fatalf("DeriveKeyArgon2id returned error: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("different salts must not derive the same key")
	}
}

func TestDeriveKeyArgon2idRejectsWrongSaltLength(t *testing.T) {
	params := krypto.DefaultArgon2Params()
	if _, err := krypto.DeriveKeyArgon2id([]byte("password"), []byte("short"), params); err == nil {
		t.Fatalf("expected error for undersized salt")
	}
}

func TestDeriveKeyPBKDF2IsDeterministicAndMatchesKnownVector(t *testing.T) {
	// Single-iteration PBKDF2-HMAC-SHA256 test vector (common PBKDF2 test
	// suites): P="password", S="salt", c=1, dkLen=32.
	params := krypto.PBKDF2Params{Iterations: 1, KeyLen: 32}
	key, err := krypto.DeriveKeyPBKDF2([]byte("password"), []byte("salt"), params)
	if err != nil {
		t.Fatalf("DeriveKeyPBKDF2 returned error: %v", err)
	}
	want := []byte{
		0x12, 0x0f, 0xb6, 0xcf, 0xfc, 0xf8, 0xb3, 0x2c,
		0x43, 0xe7, 0x22, 0x52, 0x56, 0xc4, 0xf8, 0x37,
		0xa8, 0x65, 0x48, 0xc9, 0x2c, 0xcc, 0x35, 0x48,
		0x08, 0x05, 0x98, 0x7c, 0xb7, 0x0b, 0xe1, 0x7b,
	}
	if !bytes.Equal(key, want) {
		t.Fatalf("derived key does not match known PBKDF2-HMAC-SHA256 test vector")
	}
}

func TestDeriveKeyPBKDF2RejectsZeroIterations(t *testing.T) {
	if _, err := krypto.DeriveKeyPBKDF2([]byte("password"), []byte("salt"), krypto.PBKDF2Params{Iterations: 0, KeyLen: 32}); err == nil {
		t.Fatalf("expected error for zero iteration count")
	}
}

func TestNewRandomSaltProducesUniqueSalts(t *testing.T) {
	a, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}
	b, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two calls to NewRandomSalt produced identical salts")
	}
	if len(a) != krypto.SaltLengthBytes {
		t.Fatalf("expected %d byte salt, got %d", krypto.SaltLengthBytes, len(a))
	}
}
