// Package quickunlock caches the agent's unlocked user key in the OS
// keychain so a later unlock can skip the master-password prompt when
// the OS itself has already authenticated the user session. Storage
// is adapted from the teacher's internal/bio/toggle package, which
// kept a WebAuthn biometric toggle under the same per-directory
// Keychain account scheme; here the payload is the unlocked user key
// (base64-encoded) instead of a toggle flag.
package quickunlock

import "errors"

// ErrUnsupported signals that quick-unlock caching is not available
// on this platform (only macOS Keychain is wired today).
var ErrUnsupported = errors.New("quick-unlock cache not supported on this platform")

// ErrNotCached signals the vault directory has no cached key, which
// is the expected steady state whenever quick-unlock has never been
// enabled or the cache has been cleared by Lock/Clear.
var ErrNotCached = errors.New("no cached key for this vault")
