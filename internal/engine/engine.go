package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"treasure-chess/internal/engine/uci"
	"treasure-chess/internal/obslog"
)

// ErrNoMove is returned when the engine reports it has no legal move.
// It shows up only when the caller asks for a move in an already
// terminal position.
var ErrNoMove = errors.New("engine has no move")

const maxDepth = 18

// Oracle is the synchronous search surface. *uci.Session satisfies it.
type Oracle interface {
	BestMove(ctx context.Context, req uci.SearchRequest) (string, error)
}

var _ Oracle = (*uci.Session)(nil)

// Client turns the blocking oracle into the fire-and-callback surface
// the match controller consumes. One request is in flight per Client at
// a time as far as the controller is concerned; the underlying session
// serializes anyway.
type Client struct {
	oracle  Oracle
	depth   int
	timeout time.Duration
}

func NewClient(oracle Oracle, difficulty int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		oracle:  oracle,
		depth:   DepthForDifficulty(difficulty),
		timeout: timeout,
	}
}

// DepthForDifficulty maps the configured difficulty onto a search
// depth. Monotonic in difficulty, capped so a misconfigured value
// cannot stall the engine.
func DepthForDifficulty(difficulty int) int {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 20 {
		difficulty = 20
	}
	depth := 2 + (difficulty*4)/5
	if depth > maxDepth {
		depth = maxDepth
	}
	return depth
}

// SkillForDifficulty maps difficulty onto the engine's skill option.
func SkillForDifficulty(difficulty int) int {
	if difficulty < 0 {
		return 0
	}
	if difficulty > 20 {
		return 20
	}
	return difficulty
}

// RequestMove starts a search for the position described by fen plus
// the move list and invokes callback from a separate goroutine exactly
// once. The wait is bounded by the client timeout; on expiry the
// callback receives the context error and the match state is left for
// the caller to decide.
func (c *Client) RequestMove(ctx context.Context, fen string, moves []string, callback func(move string, err error)) {
	go func() {
		searchCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		started := time.Now()
		move, err := c.oracle.BestMove(searchCtx, uci.SearchRequest{
			FEN:    fen,
			Moves:  moves,
			Limits: uci.Limits{Depth: c.depth},
		})
		elapsed := time.Since(started)

		if err == nil && move == "(none)" {
			err = ErrNoMove
		}
		if err != nil {
			obslog.L().Warn("engine_move_failed",
				zap.Duration("elapsed", elapsed),
				zap.Int("depth", c.depth),
				zap.Error(err))
			callback("", err)
			return
		}

		obslog.L().Debug("engine_move",
			zap.String("move", move),
			zap.Duration("elapsed", elapsed),
			zap.Int("depth", c.depth))
		callback(move, nil)
	}()
}
