package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"treasure-chess/internal/domain"
)

var (
	// ErrSessionExists is returned when the unordered pair already has a
	// live session record.
	ErrSessionExists = errors.New("session already exists for pair")
	ErrNotFound      = errors.New("session not found")
)

// Record is the shared session state both clients converge on. FEN and
// Moves are mutually derivable; Moves is authoritative when both are
// present.
type Record struct {
	ID      uuid.UUID     `json:"id"`
	White   string        `json:"white"`
	Black   string        `json:"black"`
	PairKey string        `json:"pair_key"`
	FEN     string        `json:"fen"`
	Moves   []string      `json:"moves"`
	Status  domain.Status `json:"status"`

	// SettledAt is set exactly once, by whichever writer wins the
	// settlement race. A non-nil value means the ledger has been paid.
	SettledAt *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord builds a fresh in-progress record for a white/black pairing.
func NewRecord(white, black string) *Record {
	now := time.Now()
	white = domain.NormalizeName(white)
	black = domain.NormalizeName(black)
	return &Record{
		ID:        uuid.New(),
		White:     white,
		Black:     black,
		PairKey:   domain.PairKey(white, black),
		FEN:       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves:     []string{},
		Status:    domain.InProgress(domain.White),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ColorOf returns the side assigned to name within the record.
func (r *Record) ColorOf(name string) (domain.Color, bool) {
	switch domain.NormalizeName(name) {
	case r.White:
		return domain.White, true
	case r.Black:
		return domain.Black, true
	default:
		return "", false
	}
}

// Opponent returns the other participant's name.
func (r *Record) Opponent(name string) string {
	if domain.NormalizeName(name) == r.White {
		return r.Black
	}
	return r.White
}

// Store persists session records. One live record per unordered pair.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	FindByPair(ctx context.Context, a, b string) (*Record, error)
	ListOpen(ctx context.Context) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	// MarkSettled flips the settlement marker if and only if it is still
	// unset. Returns true for the winner of the race, false for everyone
	// after.
	MarkSettled(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
