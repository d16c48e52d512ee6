package display_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rbw-cli/rbw/internal/cipher"
	"github.com/rbw-cli/rbw/internal/display"
)

type fakeSink struct {
	stored string
	err    error
}

func (f *fakeSink) Store(text string) error {
	f.stored = text
	return f.err
}

func loginCipher(username, password string) *cipher.DecryptedCipher {
	return &cipher.DecryptedCipher{
		Name: "github",
		Kind: cipher.KindLogin,
		Login: &cipher.LoginData{
			Username: &username,
			Password: &password,
		},
	}
}

func TestShortPrintsPasswordToOut(t *testing.T) {
	var out, errOut bytes.Buffer
	r := &display.Router{Out: &out, ErrOut: &errOut}

	if !r.Short(loginCipher("alice", "hunter2"), "github") {
		t.Fatalf("expected Short to report success")
	}
	if strings.TrimSpace(out.String()) != "hunter2" {
		t.Fatalf("expected hunter2 written to Out, got %q", out.String())
	}
	if errOut.Len() != 0 {
		t.Fatalf("expected nothing on ErrOut, got %q", errOut.String())
	}
}

func TestShortRoutesToClipboardWhenRequested(t *testing.T) {
	sink := &fakeSink{}
	var out bytes.Buffer
	r := &display.Router{Out: &out, Sink: sink, ToClipboard: true}

	if !r.Short(loginCipher("alice", "hunter2"), "github") {
		t.Fatalf("expected Short to report success")
	}
	if sink.stored != "hunter2" {
		t.Fatalf("expected password routed to clipboard sink, got %q", sink.stored)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written to Out when routing to clipboard, got %q", out.String())
	}
}

func TestShortMissingValueReportsDiagnosticOnErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	r := &display.Router{Out: &out, ErrOut: &errOut}
	c := &cipher.DecryptedCipher{Name: "github", Kind: cipher.KindLogin, Login: &cipher.LoginData{}}

	if r.Short(c, "github") {
		t.Fatalf("expected Short to report failure for a login with no password")
	}
	if !strings.Contains(errOut.String(), "had no password") {
		t.Fatalf("expected 'had no password' diagnostic, got %q", errOut.String())
	}
}

func TestFieldCaseInsensitiveKeywordLookup(t *testing.T) {
	var out bytes.Buffer
	r := &display.Router{Out: &out, ErrOut: &bytes.Buffer{}}

	if !r.Field(loginCipher("alice", "hunter2"), "USER", "github") {
		t.Fatalf("expected Field to find the username keyword case-insensitively")
	}
	if strings.TrimSpace(out.String()) != "alice" {
		t.Fatalf("expected alice, got %q", out.String())
	}
}

func TestFieldFallsBackToCustomFieldSubstringMatch(t *testing.T) {
	var out bytes.Buffer
	name, value := "Security Question", "favorite color"
	c := &cipher.DecryptedCipher{
		Kind:  cipher.KindLogin,
		Login: &cipher.LoginData{},
		Fields: []cipher.DecryptedField{
			{Name: &name, Value: &value},
		},
	}
	r := &display.Router{Out: &out, ErrOut: &bytes.Buffer{}}
	if !r.Field(c, "security", "entry") {
		t.Fatalf("expected custom-field substring fallback to match")
	}
	if strings.TrimSpace(out.String()) != "favorite color" {
		t.Fatalf("expected favorite color, got %q", out.String())
	}
}

func TestFieldUnknownReportsDiagnostic(t *testing.T) {
	var errOut bytes.Buffer
	r := &display.Router{Out: &bytes.Buffer{}, ErrOut: &errOut}
	c := &cipher.DecryptedCipher{Kind: cipher.KindLogin, Login: &cipher.LoginData{}}

	if r.Field(c, "nonexistent", "github") {
		t.Fatalf("expected failure for unknown field")
	}
	if !strings.Contains(errOut.String(), "no such field") {
		t.Fatalf("expected 'no such field' diagnostic, got %q", errOut.String())
	}
}

func TestLongIncludesSecondaryLinesAndNotes(t *testing.T) {
	var out bytes.Buffer
	notes := "remember to rotate this"
	c := loginCipher("alice", "hunter2")
	c.Notes = &notes
	r := &display.Router{Out: &out, ErrOut: &bytes.Buffer{}}

	if !r.Long(c, "github") {
		t.Fatalf("expected Long to report success")
	}
	rendered := out.String()
	if !strings.Contains(rendered, "hunter2") {
		t.Fatalf("expected password in output, got %q", rendered)
	}
	if !strings.Contains(rendered, "Username: alice") {
		t.Fatalf("expected username line, got %q", rendered)
	}
	if !strings.Contains(rendered, notes) {
		t.Fatalf("expected notes body, got %q", rendered)
	}
}

func TestLongRoutesSecondaryLinesToClipboardSink(t *testing.T) {
	// Notes are always printed directly to Out in the long-form view,
	// clipboard routing or not, so use a cipher without notes here and
	// assert only on the secondary ("Username: ...") line.
	sink := &fakeSink{}
	var out bytes.Buffer
	r := &display.Router{Out: &out, Sink: sink, ToClipboard: true}

	if !r.Long(loginCipher("alice", "hunter2"), "github") {
		t.Fatalf("expected Long to report success")
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written to Out when routing to clipboard, got %q", out.String())
	}
	if !strings.Contains(sink.stored, "alice") {
		t.Fatalf("expected the last clipboard write to carry a secondary line, got %q", sink.stored)
	}
}

func TestLongAlwaysPrintsNotesDirectlyEvenWhenClipboardRouted(t *testing.T) {
	sink := &fakeSink{}
	var out bytes.Buffer
	notes := "remember to rotate this"
	c := loginCipher("alice", "hunter2")
	c.Notes = &notes
	r := &display.Router{Out: &out, Sink: sink, ToClipboard: true}

	if !r.Long(c, "github") {
		t.Fatalf("expected Long to report success")
	}
	if !strings.Contains(out.String(), notes) {
		t.Fatalf("expected notes body printed directly to Out, got %q", out.String())
	}
}

func TestJSONMarshalsEntry(t *testing.T) {
	var out bytes.Buffer
	r := &display.Router{Out: &out}
	if err := r.JSON(loginCipher("alice", "hunter2")); err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	if !strings.Contains(out.String(), `"name": "github"`) {
		t.Fatalf("expected pretty-printed json with entry name, got %q", out.String())
	}
}
