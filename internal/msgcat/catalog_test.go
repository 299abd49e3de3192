package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderEmbeddedDefaults(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := cat.Render("match.checkmate", map[string]string{"Winner": "ALICE"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text == "" {
		t.Fatalf("empty render")
	}

	if _, err := cat.Render("match.no_such_key", nil); err == nil {
		t.Fatalf("missing key rendered")
	}
}

func TestRenderMissingDataIsError(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("match.checkmate", map[string]string{}); err == nil {
		t.Fatalf("missing template data accepted")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "match:\n  checkmate: \"winner is {{.Winner}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := cat.Render("match.checkmate", map[string]string{"Winner": "BOB"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "winner is BOB" {
		t.Fatalf("text = %q", text)
	}

	// untouched keys keep their defaults
	if _, err := cat.Render("match.draw", nil); err != nil {
		t.Fatalf("default lost after override: %v", err)
	}
}
