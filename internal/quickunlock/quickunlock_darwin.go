//go:build darwin

package quickunlock

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	keychain "github.com/keybase/go-keychain"
)

const (
	keychainService = "rbw.quickunlock"
	keychainLabel   = "rbw quick-unlock key"
)

func accountForDirectory(directory string) (string, error) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return "", errors.New("vault directory is required")
	}

	absolutePath, err := filepath.Abs(directory)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absolutePath); err == nil && resolved != "" {
		absolutePath = resolved
	}
	return absolutePath, nil
}

// Store caches key under the Keychain account for dir, device-local
// and readable only while the device is unlocked.
func Store(dir string, key []byte) error {
	account, err := accountForDirectory(dir)
	if err != nil {
		return err
	}

	payload := []byte(base64.StdEncoding.EncodeToString(key))
	item := keychain.NewGenericPassword(keychainService, account, keychainLabel, payload, "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := keychain.AddItem(item); err != nil {
		if err == keychain.ErrorDuplicateItem {
			query := keychain.NewGenericPassword(keychainService, account, "", nil, "")
			update := keychain.NewItem()
			update.SetData(payload)
			if err := keychain.UpdateItem(query, update); err != nil {
				return fmt.Errorf("update quick-unlock cache: %w", err)
			}
			return nil
		}
		return fmt.Errorf("add quick-unlock cache to keychain: %w", err)
	}
	return nil
}

// Load returns the cached key for dir, or ErrNotCached if none exists.
// On macOS this first requires a Touch ID prompt: the keychain item's
// AccessibleWhenUnlockedThisDeviceOnly policy already ties it to the
// device being unlocked, and the biometric prompt adds an explicit,
// per-call user presence check on top of that.
func Load(dir string) ([]byte, error) {
	account, err := accountForDirectory(dir)
	if err != nil {
		return nil, err
	}
	if err := authenticate(""); err != nil {
		return nil, fmt.Errorf("biometric authentication required: %w", err)
	}
	data, err := keychain.GetGenericPassword(keychainService, account, "", "")
	if err != nil {
		return nil, fmt.Errorf("read quick-unlock cache: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotCached
	}
	key, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode quick-unlock cache: %w", err)
	}
	return key, nil
}

// Clear removes any cached key for dir. Clearing an absent entry is
// not an error, for idempotency with Lock's "clear on every lock" call.
func Clear(dir string) error {
	account, err := accountForDirectory(dir)
	if err != nil {
		return err
	}
	query := keychain.NewGenericPassword(keychainService, account, "", nil, "")
	if err := keychain.DeleteItem(query); err != nil && err != keychain.ErrorItemNotFound {
		return fmt.Errorf("remove quick-unlock cache from keychain: %w", err)
	}
	return nil
}
