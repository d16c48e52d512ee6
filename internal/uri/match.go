// Package uri implements the six URI match semantics a stored login URI
// can use against a query URL (spec.md §4.3). The use of
// golang.org/x/net/publicsuffix to validate that a host is a real,
// resolvable domain (as opposed to a bare IP literal or something the
// public suffix list can't classify) is grounded on the teacher's
// native-host/domaincheck package, generalized from "browser autofill
// eTLD+1 check" to "vault entry URI match".
package uri

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/rbw-cli/rbw/internal/cipher"
)

// defaultPorts lists the scheme -> default-port mapping that special
// ("hierarchical") URL schemes normalize away, mirroring how a
// spec-compliant URL parser drops a port equal to its scheme default.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// hostWithPort returns "host" or "host:port", using the literal port
// unless it equals the scheme's default, in which case it is dropped.
func hostWithPort(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return host
	}
	if defaultPorts[u.Scheme] == port {
		return host
	}
	return host + ":" + port
}

// isRegistrableHost reports whether host (no port) resolves to a real
// registrable domain via the public suffix list; false for IP literals
// and hosts the list can't classify.
func isRegistrableHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if net.ParseIP(host) != nil {
		return false
	}
	_, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil
}

// Matches decides whether stored URI u matches query URL q, per the
// match-type table in spec.md §4.3.
func Matches(u cipher.DecryptedURI, q *url.URL) bool {
	switch u.MatchType {
	case cipher.MatchNever:
		return false
	case cipher.MatchStartsWith:
		return strings.HasPrefix(q.String(), u.URI)
	case cipher.MatchExact:
		return q.String() == u.URI
	case cipher.MatchRegularExpression:
		re, err := regexp.Compile(u.URI)
		if err != nil {
			return false
		}
		return re.MatchString(q.String())
	case cipher.MatchHost:
		return matchHost(u, q)
	default: // MatchDomain, and absent (treated as Domain)
		return matchDomain(u, q)
	}
}

func matchHost(u cipher.DecryptedURI, q *url.URL) bool {
	qHost := hostWithPort(q)
	if stored, err := url.Parse(u.URI); err == nil && stored.Host != "" {
		if stored.Scheme != q.Scheme {
			return false
		}
		return hostWithPort(stored) == qHost
	}
	return u.URI == qHost
}

func matchDomain(u cipher.DecryptedURI, q *url.URL) bool {
	if !isRegistrableHost(q.Hostname()) {
		return false
	}
	qDom := hostWithPort(q)

	if stored, err := url.Parse(u.URI); err == nil && stored.Host != "" {
		if stored.Scheme != q.Scheme {
			return false
		}
		uDom := hostWithPort(stored)
		return uDom == qDom || strings.HasSuffix(qDom, "."+uDom)
	}

	// Stored side isn't a parseable URL: treat it as a bare domain/host
	// string and preserve the dot-suffix subdomain rule (spec.md §9).
	return u.URI == qDom || strings.HasSuffix(qDom, "."+u.URI)
}
