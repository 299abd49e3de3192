package domain

import "testing"

func TestPairKeyUnordered(t *testing.T) {
	if PairKey("alice", "bob") != PairKey("BOB", " Alice ") {
		t.Fatalf("pair key depends on order or case")
	}
	if PairKey("alice", "bob") == PairKey("alice", "carol") {
		t.Fatalf("distinct pairs collide")
	}
}

func TestNormalizeName(t *testing.T) {
	if NormalizeName(" stockfish ") != EngineName {
		t.Fatalf("engine name not canonical: %q", NormalizeName(" stockfish "))
	}
}

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{InProgress(White), false},
		{DrawOffered("ALICE"), false},
		{Resigned("BOB", "resigned"), true},
		{Drawn("agreement"), true},
	}
	for _, tc := range cases {
		if tc.status.Terminal() != tc.terminal {
			t.Fatalf("Terminal(%+v) = %v", tc.status, tc.status.Terminal())
		}
	}
}

func TestColorOpponent(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("opponent mapping broken")
	}
}
