package needle_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rbw-cli/rbw/internal/needle"
)

func TestParseUUIDTakesPrecedence(t *testing.T) {
	id := uuid.New()
	n := needle.Parse(id.String())
	if n.Kind != needle.KindUUID {
		t.Fatalf("expected KindUUID, got %v", n.Kind)
	}
	if n.UUID != id {
		t.Fatalf("expected parsed uuid %v, got %v", id, n.UUID)
	}
}

func TestParseHierarchicalURI(t *testing.T) {
	n := needle.Parse("https://example.com/login")
	if n.Kind != needle.KindURI {
		t.Fatalf("expected KindURI, got %v", n.Kind)
	}
	if n.URI == nil || n.URI.Host != "example.com" {
		t.Fatalf("expected parsed host example.com, got %+v", n.URI)
	}
}

func TestParseNonHierarchicalSchemeFallsBackToName(t *testing.T) {
	n := needle.Parse("mailto:someone@example.com")
	if n.Kind != needle.KindName {
		t.Fatalf("mailto is not an allow-listed scheme, expected KindName, got %v", n.Kind)
	}
}

func TestParseFreeFormName(t *testing.T) {
	n := needle.Parse("github")
	if n.Kind != needle.KindName {
		t.Fatalf("expected KindName, got %v", n.Kind)
	}
	if n.Name != "github" {
		t.Fatalf("expected Name %q, got %q", "github", n.Name)
	}
}

func TestParseIsTotalOnGarbageInput(t *testing.T) {
	for _, s := range []string{"", "://", "   ", "not a url at all"} {
		n := needle.Parse(s)
		if n.Kind != needle.KindName {
			t.Fatalf("garbage input %q must fall back to KindName, got %v", s, n.Kind)
		}
	}
}
