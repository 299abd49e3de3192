package uci

import (
	"strings"
	"testing"
	"time"
)

func TestBuildPositionCommand(t *testing.T) {
	cases := []struct {
		fen   string
		moves []string
		want  string
	}{
		{"", nil, "position startpos\n"},
		{"startpos", []string{"e2e4"}, "position startpos moves e2e4\n"},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", nil, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1\n"},
		{"", []string{"e2e4", "e7e5"}, "position startpos moves e2e4 e7e5\n"},
	}
	for _, tc := range cases {
		got := buildPositionCommand(tc.fen, tc.moves)
		if got != tc.want {
			t.Fatalf("buildPositionCommand(%q, %v) = %q, want %q", tc.fen, tc.moves, got, tc.want)
		}
	}
}

func TestBuildGoTokens(t *testing.T) {
	tokens, err := buildGoTokens(Limits{Depth: 12})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if got := strings.Join(tokens, " "); got != "go depth 12" {
		t.Fatalf("tokens = %q", got)
	}

	tokens, err = buildGoTokens(Limits{Depth: 8, MoveTimeMillis: 500})
	if err != nil {
		t.Fatalf("buildGoTokens: %v", err)
	}
	if got := strings.Join(tokens, " "); got != "go depth 8 movetime 500" {
		t.Fatalf("tokens = %q", got)
	}

	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("empty limits accepted")
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{SkillLevel: 10, HashMB: 64}); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	if err := validateOptions(Options{SkillLevel: 21, HashMB: 64}); err == nil {
		t.Fatalf("skill level 21 accepted")
	}
	if err := validateOptions(Options{SkillLevel: 5, HashMB: 0}); err == nil {
		t.Fatalf("zero hash accepted")
	}
}

func TestComputeSearchTimeoutBounds(t *testing.T) {
	if d := computeSearchTimeout(Limits{Depth: 1}); d != 6*time.Second {
		t.Fatalf("shallow depth timeout = %v, want 6s floor", d)
	}
	if d := computeSearchTimeout(Limits{Depth: 100}); d != 20*time.Second {
		t.Fatalf("deep depth timeout = %v, want 20s cap", d)
	}
	if d := computeSearchTimeout(Limits{}); d != 6*time.Second {
		t.Fatalf("default timeout = %v, want 6s", d)
	}
}
