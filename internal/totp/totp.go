// Package totp implements the C6 TOTP engine: parsing a stored secret
// (bare base32 or an otpauth://totp/ URL) into its parameters, and
// computing an RFC 6238 time-based code from them.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Algorithm names the HMAC hash used for HOTP generation. Comparison
// against a stored otpauth algorithm parameter is case-sensitive;
// anything other than the three below is a hard error.
type Algorithm string

const (
	AlgoSHA1   Algorithm = "SHA1"
	AlgoSHA256 Algorithm = "SHA256"
	AlgoSHA512 Algorithm = "SHA512"
)

func (a Algorithm) newHash() (func() hash.Hash, error) {
	switch a {
	case AlgoSHA1:
		return sha1.New, nil
	case AlgoSHA256:
		return sha256.New, nil
	case AlgoSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%q is not a valid totp algorithm", string(a))
	}
}

// Params is the fully-parsed form of a stored totp secret.
type Params struct {
	Secret    []byte
	Algorithm Algorithm
	Digits    int
	Period    int
}

// Parse classifies raw as an otpauth://totp/ URL or a bare base32
// secret and resolves it to Params, applying the SHA1/6/30 defaults
// (spec.md §4.6).
func Parse(raw string) (Params, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "otpauth://") {
		return parseURL(trimmed)
	}
	secret, err := decodeBase32(trimmed)
	if err != nil {
		return Params{}, fmt.Errorf("invalid totp secret: %w", err)
	}
	return Params{Secret: secret, Algorithm: AlgoSHA1, Digits: 6, Period: 30}, nil
}

func parseURL(raw string) (Params, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Params{}, fmt.Errorf("invalid totp url: %w", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		return Params{}, fmt.Errorf("invalid totp url: scheme/host must be otpauth://totp/")
	}

	q := u.Query()

	rawSecret := q.Get("secret")
	if rawSecret == "" {
		return Params{}, fmt.Errorf("invalid totp url: missing secret parameter")
	}
	secret, err := decodeBase32(rawSecret)
	if err != nil {
		return Params{}, fmt.Errorf("invalid totp secret: %w", err)
	}

	algo := Algorithm("SHA1")
	if a := q.Get("algorithm"); a != "" {
		algo = Algorithm(a)
	}
	if _, err := algo.newHash(); err != nil {
		return Params{}, err
	}

	digits := 6
	if d := q.Get("digits"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			return Params{}, fmt.Errorf("invalid totp digits %q: %w", d, err)
		}
		digits = n
	}

	period := 30
	if p := q.Get("period"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Params{}, fmt.Errorf("invalid totp period %q: %w", p, err)
		}
		period = n
	}

	return Params{Secret: secret, Algorithm: algo, Digits: digits, Period: period}, nil
}

// decodeBase32 accepts all four RFC 4648 spellings: upper/lower case,
// padded/unpadded, trimming surrounding whitespace first.
func decodeBase32(s string) ([]byte, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n := len(s) % 8; n != 0 {
		s += strings.Repeat("=", 8-n)
	}
	return base32.StdEncoding.DecodeString(s)
}

// Now returns the current code for the given secret parameters, using
// the system clock. Now is a thin wrapper around At for production
// callers; tests call At directly with a fixed instant.
func Now(p Params) (string, error) {
	return At(p, time.Now())
}

// At computes the HOTP code for the time step containing at, per
// RFC 6238: counter = floor(unix_seconds / period), then RFC 4226
// HOTP truncated to p.Digits decimal digits.
func At(p Params, at time.Time) (string, error) {
	newHash, err := p.Algorithm.newHash()
	if err != nil {
		return "", err
	}
	digits := p.Digits
	if digits == 0 {
		digits = 6
	}
	period := p.Period
	if period == 0 {
		period = 30
	}

	counter := uint64(at.Unix()) / uint64(period)
	return hotp(p.Secret, counter, digits, newHash), nil
}

func hotp(secret []byte, counter uint64, digits int, newHash func() hash.Hash) string {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(newHash, secret)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, code%mod)
}
