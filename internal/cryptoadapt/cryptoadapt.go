// Package cryptoadapt implements cipher.Decryptor over the teacher's
// krypto primitives (Argon2id KDF + AES-256-GCM AEAD), generalized
// from a single master-password vault to the organization/entry key
// hierarchy the cipher model requires (spec.md §3: every ciphertext
// is decrypted with entry.Key if present, else org_id's key, else the
// user key; folders are always user-key-scoped by the caller).
package cryptoadapt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rbw-cli/rbw/krypto"
)

// Adapter holds the keys unlocked for the current session. UserKey is
// the user's own symmetric key (a random key the agent unwraps at
// unlock time with a key derived from the master password); OrgKeys holds one
// symmetric key per organization the user belongs to, keyed by org id.
type Adapter struct {
	UserKey []byte
	OrgKeys map[string][]byte
}

// Decrypt implements cipher.Decryptor. ciphertext is a CipherString of
// the form "<base64 nonce>.<base64 ciphertext>". When entryKey is
// present it is itself a CipherString, wrapped under the org key (if
// orgID is set) or the user key otherwise; it is unwrapped first to
// obtain the entry's own symmetric key.
func (a *Adapter) Decrypt(ciphertext string, entryKey *string, orgID *string) (string, error) {
	key, err := a.resolveKey(entryKey, orgID)
	if err != nil {
		return "", err
	}

	pt, err := decryptCipherString(ciphertext, key)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func (a *Adapter) resolveKey(entryKey *string, orgID *string) ([]byte, error) {
	parent, err := a.parentKey(orgID)
	if err != nil {
		return nil, err
	}

	if entryKey == nil {
		return parent, nil
	}
	return decryptCipherString(*entryKey, parent)
}

func (a *Adapter) parentKey(orgID *string) ([]byte, error) {
	if orgID == nil {
		if a.UserKey == nil {
			return nil, errors.New("vault is locked: no user key available")
		}
		return a.UserKey, nil
	}
	key, ok := a.OrgKeys[*orgID]
	if !ok {
		return nil, fmt.Errorf("no key available for organization %s", *orgID)
	}
	return key, nil
}

// Encrypt is the inverse of Decrypt, used by the mutation commands
// (add/edit) that surround the lookup core.
func (a *Adapter) Encrypt(plaintext string, orgID *string) (string, error) {
	key, err := a.parentKey(orgID)
	if err != nil {
		return "", err
	}
	return encryptCipherString([]byte(plaintext), key)
}

func decryptCipherString(s string, key []byte) ([]byte, error) {
	nonceB64, ctB64, ok := strings.Cut(s, ".")
	if !ok {
		return nil, fmt.Errorf("malformed cipher string")
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	return krypto.DecryptAESGCM(key, nonce, ct, nil)
}

func encryptCipherString(plaintext, key []byte) (string, error) {
	nonce, ct, err := krypto.EncryptAESGCM(key, plaintext, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(nonce) + "." + base64.StdEncoding.EncodeToString(ct), nil
}
