package cipher

import (
	"fmt"

	"github.com/rbw-cli/rbw/internal/rlog"
)

// Decryptor is the external decrypt primitive this package consumes (C1's
// collaborator). It is implemented by internal/cryptoadapt for production
// use and faked in tests.
type Decryptor interface {
	Decrypt(ciphertext string, entryKey *string, orgID *string) (string, error)
}

// FieldErr is returned by decryptRequired and decryptRequiredPtr when a
// structurally-required field (name, a custom field, or a history
// password) fails to decrypt. C2 promotes this to a fatal projection
// error; optional fields go through decryptField, which never returns
// an error and degrades to "absent" instead.
type FieldErr struct {
	Label string
	Err   error
}

func (e *FieldErr) Error() string {
	return fmt.Sprintf("decrypt %s: %v", e.Label, e.Err)
}

func (e *FieldErr) Unwrap() error { return e.Err }

// decryptRequired decrypts a field whose failure must abort the whole
// projection (spec.md §4.1, the "name" exception).
func decryptRequired(d Decryptor, label string, ciphertext string, entryKey, orgID *string) (string, error) {
	pt, err := d.Decrypt(ciphertext, entryKey, orgID)
	if err != nil {
		return "", &FieldErr{Label: label, Err: err}
	}
	return pt, nil
}

// decryptRequiredPtr decrypts a field whose failure must abort the whole
// projection, but whose ciphertext is itself optional (a custom field's
// name or value). A nil ciphertext yields a nil plaintext with no error;
// a present ciphertext that fails to decrypt is fatal, same as
// decryptRequired.
func decryptRequiredPtr(d Decryptor, label string, ciphertext *string, entryKey, orgID *string) (*string, error) {
	if ciphertext == nil {
		return nil, nil
	}
	pt, err := decryptRequired(d, label, *ciphertext, entryKey, orgID)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

// decryptField decrypts an optional field. A nil ciphertext yields a nil
// plaintext with no error. A decrypt failure is logged as a warning
// (never including the ciphertext) and degrades to absent, per C1.
func decryptField(d Decryptor, label string, ciphertext *string, entryKey, orgID *string) *string {
	if ciphertext == nil {
		return nil
	}
	pt, err := d.Decrypt(*ciphertext, entryKey, orgID)
	if err != nil {
		rlog.Logger().Warn("field decryption failed, field will be absent", "field", label, "err", err)
		return nil
	}
	return &pt
}
