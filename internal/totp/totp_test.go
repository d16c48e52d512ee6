package totp_test

import (
	"testing"
	"time"

	"github.com/rbw-cli/rbw/internal/totp"
)

// rfc6238Secret is "12345678901234567890" base32-encoded, the SHA1 test
// seed used throughout RFC 6238 Appendix B.
const rfc6238Secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestParseBareBase32DefaultsToSHA1Six30(t *testing.T) {
	p, err := totp.Parse(rfc6238Secret)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p.Algorithm != totp.AlgoSHA1 || p.Digits != 6 || p.Period != 30 {
		t.Fatalf("expected SHA1/6/30 defaults, got %+v", p)
	}
}

func TestParseLowercaseUnpaddedBase32(t *testing.T) {
	p, err := totp.Parse("gezdgnbvgy3tqojqgezdgnbvgy3tqojq")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(p.Secret) == 0 {
		t.Fatalf("expected decoded secret bytes")
	}
}

func TestParseOtpauthURL(t *testing.T) {
	p, err := totp.Parse("otpauth://totp/Example:alice@example.com?secret=" + rfc6238Secret + "&algorithm=SHA256&digits=8&period=60")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if p.Algorithm != totp.AlgoSHA256 || p.Digits != 8 || p.Period != 60 {
		t.Fatalf("expected overridden params, got %+v", p)
	}
}

func TestParseOtpauthURLRejectsWrongHost(t *testing.T) {
	if _, err := totp.Parse("otpauth://hotp/Example?secret=" + rfc6238Secret); err == nil {
		t.Fatalf("expected error for non-totp otpauth host")
	}
}

func TestParseRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := totp.Parse("otpauth://totp/Example?secret=" + rfc6238Secret + "&algorithm=MD5"); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
}

// TestAtMatchesRFC6238Vector checks the SHA1/8-digit test vector for
// time 59s (T=1 at period 30) from RFC 6238 Appendix B.
func TestAtMatchesRFC6238Vector(t *testing.T) {
	p := totp.Params{Secret: decodeVectorSecret(t), Algorithm: totp.AlgoSHA1, Digits: 8, Period: 30}
	code, err := totp.At(p, time.Unix(59, 0).UTC())
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if code != "94287082" {
		t.Fatalf("expected RFC 6238 vector 94287082, got %s", code)
	}
}

func TestAtIsStableWithinAPeriod(t *testing.T) {
	p := totp.Params{Secret: decodeVectorSecret(t), Algorithm: totp.AlgoSHA1, Digits: 6, Period: 30}
	a, err := totp.At(p, time.Unix(120, 0).UTC())
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	b, err := totp.At(p, time.Unix(149, 0).UTC())
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if a != b {
		t.Fatalf("expected same code within one 30s period, got %s vs %s", a, b)
	}

	c, err := totp.At(p, time.Unix(150, 0).UTC())
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if a == c {
		t.Fatalf("expected a different code once the period rolls over")
	}
}

func decodeVectorSecret(t *testing.T) []byte {
	t.Helper()
	p, err := totp.Parse(rfc6238Secret)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return p.Secret
}
