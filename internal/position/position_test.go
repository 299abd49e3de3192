package position

import (
	"testing"

	"treasure-chess/internal/domain"
)

func TestApplyMoveLegal(t *testing.T) {
	p := New()

	applied, err := p.ApplyMove("e2", "e4", "")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.UCI != "e2e4" {
		t.Fatalf("uci = %q, want e2e4", applied.UCI)
	}
	if applied.SAN != "e4" {
		t.Fatalf("san = %q, want e4", applied.SAN)
	}
	if applied.Color != domain.White {
		t.Fatalf("color = %q, want white", applied.Color)
	}
	if p.Turn() != domain.Black {
		t.Fatalf("turn = %q, want black", p.Turn())
	}
	if n := p.PlyCount(); n != 1 {
		t.Fatalf("ply count = %d, want 1", n)
	}
}

func TestApplyMoveIllegalLeavesPositionUntouched(t *testing.T) {
	p := New()
	before := p.Snapshot()

	if _, err := p.ApplyMove("e2", "e5", ""); err != ErrIllegalMove {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	if _, err := p.ApplyMove("d7", "d5", ""); err != ErrIllegalMove {
		t.Fatalf("moving for the wrong side: err = %v, want ErrIllegalMove", err)
	}
	if _, err := p.ApplyMove("e9", "e4", ""); err != ErrIllegalMove {
		t.Fatalf("bad square: err = %v, want ErrIllegalMove", err)
	}

	if p.Snapshot() != before {
		t.Fatalf("position changed after rejected moves")
	}
	if n := p.PlyCount(); n != 0 {
		t.Fatalf("ply count = %d, want 0", n)
	}
}

func TestCaptureReported(t *testing.T) {
	p := New()
	mustApply(t, p, "e2e4", "d7d5")

	applied, err := p.ApplyUCI("e4d5")
	if err != nil {
		t.Fatalf("ApplyUCI: %v", err)
	}
	if applied.Captured == "" {
		t.Fatalf("capture not reported")
	}
}

func TestFoolsMateCheckmate(t *testing.T) {
	p := New()
	mustApply(t, p, "f2f3", "e7e5", "g2g4")

	applied, err := p.ApplyUCI("d8h4")
	if err != nil {
		t.Fatalf("ApplyUCI: %v", err)
	}
	if !applied.Checkmate {
		t.Fatalf("checkmate not detected")
	}

	outcome := p.Outcome()
	if outcome.Kind != domain.OutcomeCheckmate {
		t.Fatalf("outcome kind = %q, want checkmate", outcome.Kind)
	}
	if outcome.Winner != string(domain.Black) {
		t.Fatalf("winner = %q, want black", outcome.Winner)
	}
}

func TestLoadFromReplaysMoveList(t *testing.T) {
	src := New()
	mustApply(t, src, "e2e4", "e7e5", "g1f3")

	dst := New()
	if err := dst.LoadFrom(src.Snapshot(), src.UCILog()); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if dst.Snapshot() != src.Snapshot() {
		t.Fatalf("snapshot mismatch after replay:\n got %s\nwant %s", dst.Snapshot(), src.Snapshot())
	}
	if got, want := len(dst.MoveList()), 3; got != want {
		t.Fatalf("move list length = %d, want %d", got, want)
	}
	if dst.Turn() != domain.Black {
		t.Fatalf("turn = %q, want black", dst.Turn())
	}
}

func TestLoadFromRejectsMismatchedSnapshot(t *testing.T) {
	src := New()
	mustApply(t, src, "e2e4")

	dst := New()
	wrongFEN := New().Snapshot()
	if err := dst.LoadFrom(wrongFEN, src.UCILog()); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestLoadFromFENOnly(t *testing.T) {
	src := New()
	mustApply(t, src, "e2e4", "c7c5")

	dst := New()
	if err := dst.LoadFrom(src.Snapshot(), nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if dst.Snapshot() != src.Snapshot() {
		t.Fatalf("snapshot mismatch")
	}
	if dst.Turn() != domain.White {
		t.Fatalf("turn = %q, want white", dst.Turn())
	}
}

func TestPieceColorAt(t *testing.T) {
	p := New()

	if color, ok := p.PieceColorAt("e2"); !ok || color != domain.White {
		t.Fatalf("e2 = (%q,%v), want white pawn", color, ok)
	}
	if color, ok := p.PieceColorAt("e7"); !ok || color != domain.Black {
		t.Fatalf("e7 = (%q,%v), want black pawn", color, ok)
	}
	if _, ok := p.PieceColorAt("e4"); ok {
		t.Fatalf("e4 should be empty")
	}
	if _, ok := p.PieceColorAt("z9"); ok {
		t.Fatalf("invalid square should report no piece")
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	p := New()
	if err := p.LoadFrom("8/P6k/8/8/8/8/8/K7 w - - 0 1", nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	applied, err := p.ApplyMove("a7", "a8", "")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.UCI != "a7a8q" {
		t.Fatalf("uci = %q, want a7a8q", applied.UCI)
	}
}

func TestPromotionDefaultsToQueenForBlack(t *testing.T) {
	p := New()
	if err := p.LoadFrom("k7/8/8/8/8/8/p6K/8 b - - 0 1", nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	applied, err := p.ApplyMove("a2", "a1", "")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.UCI != "a2a1q" {
		t.Fatalf("uci = %q, want a2a1q", applied.UCI)
	}
}

func TestPromotionExplicitPieceHonored(t *testing.T) {
	p := New()
	if err := p.LoadFrom("8/P6k/8/8/8/8/8/K7 w - - 0 1", nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	applied, err := p.ApplyMove("a7", "a8", "n")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.UCI != "a7a8n" {
		t.Fatalf("uci = %q, want a7a8n", applied.UCI)
	}
}

func TestBlockedPromotionPushStillIllegal(t *testing.T) {
	p := New()
	if err := p.LoadFrom("r7/P6k/8/8/8/8/8/K7 w - - 0 1", nil); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if _, err := p.ApplyMove("a7", "a8", ""); err != ErrIllegalMove {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
}

func mustApply(t *testing.T, p *Position, ucis ...string) {
	t.Helper()
	for _, uci := range ucis {
		if _, err := p.ApplyUCI(uci); err != nil {
			t.Fatalf("apply %s: %v", uci, err)
		}
	}
}
