// Package phishguard flags look-alike domains before a credential gets
// handed over. It is adapted from the teacher's native-host/phishing.go,
// which ran the same homoglyph/IDNA checks at browser-autofill time;
// here there is no browser tab to inspect, so the check instead
// compares the needle the user typed against the domains already saved
// in the vault, warning when one is a visual near-miss of another
// rather than a genuine match.
//
// The teacher's phishing.go also scored a github.com/Zamiell/confusables
// "CONFUSABLE" signal, but that dependency only exists in the example
// pack as an empty third_party/ stub with no buildable source --- not a
// fetchable module --- so that one signal is dropped here rather than
// wired against a fake package; PUNYCODE and MIXED_SCRIPT detection
// below need nothing beyond golang.org/x/net, already a real dependency.
package phishguard

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ETLD1 resolves the effective top-level-domain-plus-one for a raw
// host or URL string, trying the ASCII (punycode) form first and
// falling back to the Unicode form, matching the teacher's order.
func ETLD1(raw string) (string, error) {
	host := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		host = parsed.Hostname()
	}
	host = strings.ToLower(strings.TrimSpace(host))

	asciiHost := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		asciiHost = converted
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(asciiHost); err == nil {
		return strings.ToLower(etld1), nil
	}

	unicodeHost := host
	if converted, err := idna.Lookup.ToUnicode(host); err == nil && converted != "" {
		unicodeHost = converted
	}
	return publicsuffix.EffectiveTLDPlusOne(unicodeHost)
}

// Reasons enumerates why candidate is flagged as a visual near-miss of
// saved, the reference domain (the get command passes the needle's
// domain as saved and each vault URI's domain as candidate). PUNYCODE and
// MIXED_SCRIPT only apply once nearMiss confirms the two domains are
// actually close to each other -- otherwise every punycode or
// mixed-script domain already in the vault would be reported as a
// look-alike of every unrelated needle.
func Reasons(saved, candidate string) []string {
	var reasons []string

	saved = strings.ToLower(strings.TrimSpace(saved))
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if saved == "" || candidate == "" || saved == candidate {
		return nil
	}

	isPunycode := strings.Contains(candidate, "xn--")
	decoded := candidate
	if isPunycode {
		if u, err := idna.Lookup.ToUnicode(candidate); err == nil && u != "" {
			decoded = u
		}
	}

	if !nearMiss(saved, decoded) {
		return nil
	}

	if isPunycode {
		reasons = append(reasons, "PUNYCODE")
	}
	if hasMixedScript(decoded) {
		reasons = append(reasons, "MIXED_SCRIPT")
	}
	return reasons
}

// nearMiss reports whether candidate is plausibly a spoof of saved: a
// small edit distance relative to length, the same homoglyph trick the
// teacher's dropped CONFUSABLE check targeted. Unrelated domains that
// merely happen to use punycode or a non-Latin script never pass.
func nearMiss(saved, candidate string) bool {
	threshold := len(saved) / 4
	if threshold < 2 {
		threshold = 2
	}
	return levenshtein(saved, candidate) <= threshold
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func hasMixedScript(host string) bool {
	if host == "" {
		return false
	}
	scripts := make(map[string]struct{})
	for _, label := range strings.Split(host, ".") {
		for _, r := range label {
			script := detectScript(r)
			if script == "" {
				continue
			}
			scripts[script] = struct{}{}
			if len(scripts) >= 2 {
				return true
			}
		}
	}
	return false
}

func detectScript(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Hiragana):
		return "hiragana"
	case unicode.In(r, unicode.Katakana):
		return "katakana"
	case unicode.In(r, unicode.Han):
		return "han"
	default:
		return ""
	}
}
