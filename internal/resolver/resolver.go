// Package resolver implements the multi-pass entry lookup described in
// spec.md §4.5: given a parsed Needle and the set of decrypted entries,
// it resolves to exactly one entry or reports NotFound/Ambiguous.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/needle"
	"github.com/rbw-cli/rbw/internal/uri"
)

// Pair bundles one entry's encrypted and decrypted forms, as produced
// by the Db collaborator plus C2's projection.
type Pair struct {
	Encrypted cipher.EncryptedEntry
	Decrypted *cipher.DecryptedCipher
}

// ErrNotFound is returned when no pass matches any entry.
var ErrNotFound = errors.New("no entry found matching the given needle")

// AmbiguousError is returned when the last pass tried matches more
// than one entry. Its message lists the candidates' display names.
type AmbiguousError struct {
	Names []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple entries found matching the given needle: %s", strings.Join(e.Names, ", "))
}

// Options configures one resolve call.
type Options struct {
	Username   *string
	Folder     *string
	IgnoreCase bool
}

// Resolve runs the fast UUID path or the staged exact/partial,
// folder-qualified/ignored passes of spec.md §4.5.
func Resolve(entries []Pair, n needle.Needle, opts Options) (*Pair, error) {
	if n.Kind == needle.KindUUID {
		for i := range entries {
			id, err := uuid.Parse(entries[i].Encrypted.ID)
			if err == nil && id == n.UUID {
				return &entries[i], nil
			}
		}
		return nil, ErrNotFound
	}

	type pass struct {
		fn func(Pair) bool
	}

	passes := []pass{
		{fn: func(p Pair) bool { return exactMatch(p, n, opts, true) }},
	}
	if opts.Folder == nil {
		passes = append(passes, pass{fn: func(p Pair) bool { return exactMatch(p, n, opts, false) }})
	}
	if n.Kind == needle.KindName {
		passes = append(passes, pass{fn: func(p Pair) bool { return partialMatch(p, n, opts, true) }})
		if opts.Folder == nil {
			passes = append(passes, pass{fn: func(p Pair) bool { return partialMatch(p, n, opts, false) }})
		}
	}

	var candidates []Pair
	for _, p := range passes {
		candidates = candidates[:0]
		for i := range entries {
			if p.fn(entries[i]) {
				candidates = append(candidates, entries[i])
			}
		}
		if len(candidates) == 1 {
			return &candidates[0], nil
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNotFound
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Decrypted.DisplayName()
	}
	return nil, &AmbiguousError{Names: names}
}

// exactMatch implements the exact-match predicate of spec.md §4.5. When
// ignoreCase is set, a match on either the literal or lowercased form
// is accepted ("either form is acceptable").
func exactMatch(p Pair, n needle.Needle, opts Options, tryMatchFolder bool) bool {
	if !nameOrURIOrUUIDExact(p, n, opts.IgnoreCase) {
		return false
	}
	if !usernameExact(p, opts.Username) {
		return false
	}
	if tryMatchFolder && !folderEquals(p, opts.Folder) {
		return false
	}
	return true
}

func nameOrURIOrUUIDExact(p Pair, n needle.Needle, ignoreCase bool) bool {
	switch n.Kind {
	case needle.KindName:
		if p.Decrypted.Name == n.Name {
			return true
		}
		return ignoreCase && strings.EqualFold(p.Decrypted.Name, n.Name)
	case needle.KindURI:
		if p.Decrypted.Kind != cipher.KindLogin || p.Decrypted.Login == nil {
			return false
		}
		for _, u := range p.Decrypted.Login.URIs {
			if uri.Matches(u, n.URI) {
				return true
			}
		}
		return false
	case needle.KindUUID:
		id, err := uuid.Parse(p.Encrypted.ID)
		return err == nil && id == n.UUID
	default:
		return false
	}
}

func usernameExact(p Pair, username *string) bool {
	if username == nil {
		return true
	}
	if p.Decrypted.Kind != cipher.KindLogin || p.Decrypted.Login == nil || p.Decrypted.Login.Username == nil {
		return false
	}
	return *p.Decrypted.Login.Username == *username
}

// folderEquals implements exact-presence folder matching: both absent
// is a match, but mismatched presence is always a reject.
func folderEquals(p Pair, folder *string) bool {
	entryFolder := p.Decrypted.Folder
	if folder == nil {
		return entryFolder == nil
	}
	if entryFolder == nil {
		return false
	}
	return *entryFolder == *folder
}

// partialMatch implements the substring predicate, only used for
// free-form Name needles (spec.md §4.5).
func partialMatch(p Pair, n needle.Needle, opts Options, tryMatchFolder bool) bool {
	if n.Kind != needle.KindName {
		return false
	}
	name := p.Decrypted.Name
	target := n.Name
	if opts.IgnoreCase {
		name = strings.ToLower(name)
		target = strings.ToLower(target)
	}
	if !strings.Contains(name, target) {
		return false
	}
	if !usernamePartial(p, opts.Username, opts.IgnoreCase) {
		return false
	}
	if tryMatchFolder && !folderEquals(p, opts.Folder) {
		return false
	}
	return true
}

func usernamePartial(p Pair, username *string, ignoreCase bool) bool {
	if username == nil {
		return true
	}
	if p.Decrypted.Kind != cipher.KindLogin || p.Decrypted.Login == nil || p.Decrypted.Login.Username == nil {
		return false
	}
	have := *p.Decrypted.Login.Username
	want := *username
	if ignoreCase {
		have = strings.ToLower(have)
		want = strings.ToLower(want)
	}
	return strings.Contains(have, want)
}
