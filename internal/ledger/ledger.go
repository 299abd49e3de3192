package ledger

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"treasure-chess/internal/domain"
	"treasure-chess/internal/obslog"
)

// Reward deltas applied when a match settles.
const (
	winDelta  = 3
	lossDelta = -3
	drawDelta = 1
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrNotTerminal        = errors.New("outcome is not terminal")
)

// Store persists participant balances. Adjust must be atomic: concurrent
// adjustments for the same name may never lose an update, and the stored
// balance never goes below zero.
type Store interface {
	EnsureParticipant(ctx context.Context, name string, startingBalance int) (domain.LedgerEntry, error)
	Adjust(ctx context.Context, name string, delta int) (int, error)
	Balance(ctx context.Context, name string) (domain.LedgerEntry, error)
	List(ctx context.Context) ([]domain.LedgerEntry, error)
}

// Change records one applied settlement adjustment.
type Change struct {
	Name    string
	Delta   int
	Balance int
}

// Client applies outcome-driven balance changes on top of a Store.
type Client struct {
	store           Store
	startingBalance int
}

func NewClient(store Store, startingBalance int) *Client {
	if startingBalance < 0 {
		startingBalance = 0
	}
	return &Client{store: store, startingBalance: startingBalance}
}

// EnsureParticipant registers name with the starting balance if it is
// not yet present. The engine identity is never registered.
func (c *Client) EnsureParticipant(ctx context.Context, name string) (domain.LedgerEntry, error) {
	name = domain.NormalizeName(name)
	if name == domain.EngineName {
		return domain.LedgerEntry{Name: name}, nil
	}
	return c.store.EnsureParticipant(ctx, name, c.startingBalance)
}

// Balance reads the current entry for name.
func (c *Client) Balance(ctx context.Context, name string) (domain.LedgerEntry, error) {
	return c.store.Balance(ctx, domain.NormalizeName(name))
}

// List returns every known participant with their balance.
func (c *Client) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	return c.store.List(ctx)
}

// Settle applies the deltas for a terminal outcome to both sides and
// returns the applied changes. The engine identity is exempt: its side
// of the adjustment is silently skipped. A side with no ledger entry yet
// (the opponent may never have connected) is registered at the starting
// balance first, so a settlement can never half-apply over a missing
// participant. Settle itself is not idempotent; the caller gates it on
// the session record's settlement marker.
func (c *Client) Settle(ctx context.Context, white, black string, outcome domain.Outcome) ([]Change, error) {
	white, black = domain.NormalizeName(white), domain.NormalizeName(black)

	var whiteDelta, blackDelta int
	switch outcome.Kind {
	case domain.OutcomeCheckmate, domain.OutcomeResignation:
		switch outcome.Winner {
		case string(domain.White):
			whiteDelta, blackDelta = winDelta, lossDelta
		case string(domain.Black):
			whiteDelta, blackDelta = lossDelta, winDelta
		default:
			return nil, ErrNotTerminal
		}
	case domain.OutcomeDraw, domain.OutcomeAgreedDraw:
		whiteDelta, blackDelta = drawDelta, drawDelta
	default:
		return nil, ErrNotTerminal
	}

	changes := make([]Change, 0, 2)
	for _, side := range []struct {
		name  string
		delta int
	}{{white, whiteDelta}, {black, blackDelta}} {
		if side.name == domain.EngineName {
			continue
		}
		if _, err := c.store.EnsureParticipant(ctx, side.name, c.startingBalance); err != nil {
			return changes, err
		}
		balance, err := c.store.Adjust(ctx, side.name, side.delta)
		if err != nil {
			return changes, err
		}
		obslog.L().Info("ledger_adjusted",
			zap.String("name", side.name),
			zap.Int("delta", side.delta),
			zap.Int("balance", balance))
		changes = append(changes, Change{Name: side.name, Delta: side.delta, Balance: balance})
	}
	return changes, nil
}
