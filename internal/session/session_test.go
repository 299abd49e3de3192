package session

import (
	"context"
	"testing"

	"treasure-chess/internal/domain"
)

func TestCreateEnforcesOnePerPair(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	rec := NewRecord("alice", "bob")
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// same pair, colors swapped, still a conflict
	dup := NewRecord("BOB", "Alice")
	if err := store.Create(ctx, dup); err != ErrSessionExists {
		t.Fatalf("err = %v, want ErrSessionExists", err)
	}

	other := NewRecord("alice", "carol")
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("distinct pair rejected: %v", err)
	}
}

func TestFindByPairIsUnordered(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	rec := NewRecord("alice", "bob")
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := store.FindByPair(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("FindByPair: %v", err)
	}
	if found.ID != rec.ID {
		t.Fatalf("found %s, want %s", found.ID, rec.ID)
	}
}

func TestMarkSettledFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	rec := NewRecord("alice", "bob")
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := store.MarkSettled(ctx, rec.ID)
	if err != nil {
		t.Fatalf("MarkSettled: %v", err)
	}
	if !won {
		t.Fatalf("first writer should win")
	}

	won, err = store.MarkSettled(ctx, rec.ID)
	if err != nil {
		t.Fatalf("MarkSettled again: %v", err)
	}
	if won {
		t.Fatalf("second writer must lose")
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SettledAt == nil {
		t.Fatalf("settled_at not persisted")
	}
}

func TestUpdateCannotClearSettlement(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	rec := NewRecord("alice", "bob")
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.MarkSettled(ctx, rec.ID); err != nil {
		t.Fatalf("MarkSettled: %v", err)
	}

	rec.SettledAt = nil
	rec.Status = domain.Drawn("agreement")
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SettledAt == nil {
		t.Fatalf("update cleared the settlement marker")
	}
	if got.Status.Kind != domain.StatusDrawn {
		t.Fatalf("status kind = %q, want drawn", got.Status.Kind)
	}
}

func TestDeleteFreesPair(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	rec := NewRecord("alice", "bob")
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Create(ctx, NewRecord("alice", "bob")); err != nil {
		t.Fatalf("pair still blocked after delete: %v", err)
	}
}

func TestColorOf(t *testing.T) {
	rec := NewRecord("alice", "bob")

	if c, ok := rec.ColorOf("Alice"); !ok || c != domain.White {
		t.Fatalf("alice = (%q,%v), want white", c, ok)
	}
	if c, ok := rec.ColorOf("bob"); !ok || c != domain.Black {
		t.Fatalf("bob = (%q,%v), want black", c, ok)
	}
	if _, ok := rec.ColorOf("mallory"); ok {
		t.Fatalf("stranger got a color")
	}
	if rec.Opponent("alice") != "BOB" {
		t.Fatalf("opponent of alice = %q", rec.Opponent("alice"))
	}
}
