package match

import (
	"treasure-chess/internal/domain"
	"treasure-chess/internal/position"
	"treasure-chess/internal/session"
)

// Phase is the controller's coarse state.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseLocalTurn  Phase = "local_turn"
	PhaseRemoteTurn Phase = "remote_or_engine_turn"
	PhaseTerminated Phase = "terminated"
)

// Mode distinguishes the two opponent kinds.
type Mode string

const (
	ModePvP    Mode = "pvp"
	ModeEngine Mode = "engine"
)

// MatchSession is the per-match value object. It is created by
// StartMatch, carried through every controller operation, and dropped
// when the controller returns to the lobby. Nothing about a match lives
// outside it.
type MatchSession struct {
	Mode       Mode
	LocalName  string
	LocalColor domain.Color
	White      string
	Black      string

	// Record is nil in engine mode; engine matches have no shared state
	// to synchronize.
	Record *session.Record

	Position *position.Position
	Phase    Phase
	Outcome  domain.Outcome

	// LastMove is the most recent locally-applied or engine ply. It is
	// cleared when the position is replaced wholesale by a feed
	// snapshot, since capture facts cannot be recovered from a replay.
	LastMove *MoveFact

	// Diverged flags that a stale feed snapshot was observed and
	// dropped. Cleared on the next applied update.
	Diverged bool

	// settled is the volatile at-most-once settlement guard. PvP
	// matches are additionally gated by the record's persisted
	// settlement marker.
	settled bool

	// claimed is set once this client has won the persisted settlement
	// marker. It lets a payout that failed after the claim be retried
	// without re-running the compare-and-set.
	claimed bool
}

// LocalTurn reports whether the local participant holds the move.
func (m *MatchSession) LocalTurn() bool {
	return m.Phase == PhaseLocalTurn
}

// Active reports whether the match is still being played.
func (m *MatchSession) Active() bool {
	return m.Phase == PhaseLocalTurn || m.Phase == PhaseRemoteTurn
}

func (m *MatchSession) phaseForTurn(turn domain.Color) Phase {
	if turn == m.LocalColor {
		return PhaseLocalTurn
	}
	return PhaseRemoteTurn
}

// MoveFact reports the facts of one applied ply, surfaced so the UI can
// play capture and check cues.
type MoveFact struct {
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Captured  string `json:"captured,omitempty"`
	Check     bool   `json:"check,omitempty"`
	Checkmate bool   `json:"checkmate,omitempty"`
}

func moveFact(a position.AppliedMove) *MoveFact {
	return &MoveFact{
		UCI:       a.UCI,
		SAN:       a.SAN,
		Captured:  a.Captured,
		Check:     a.Check,
		Checkmate: a.Checkmate,
	}
}

// State is the read-only view handed across the UI boundary.
type State struct {
	Phase      Phase          `json:"phase"`
	Mode       Mode           `json:"mode,omitempty"`
	White      string         `json:"white,omitempty"`
	Black      string         `json:"black,omitempty"`
	LocalColor domain.Color   `json:"local_color,omitempty"`
	FEN        string         `json:"fen,omitempty"`
	Turn       domain.Color   `json:"turn,omitempty"`
	MovesSAN   []string       `json:"moves_san,omitempty"`
	MovesUCI   []string       `json:"moves_uci,omitempty"`
	LastMove   *MoveFact      `json:"last_move,omitempty"`
	Status     domain.Status  `json:"status"`
	Outcome    domain.Outcome `json:"outcome"`
	StatusText string         `json:"status_text,omitempty"`
	Diverged   bool           `json:"diverged,omitempty"`
}
