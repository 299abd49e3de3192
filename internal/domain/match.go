package domain

import (
	"strings"
	"time"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// EngineName is the reserved identity of the automated opponent. It is
// exempt from all ledger mutation and may never be used as a participant
// name by a human.
const EngineName = "STOCKFISH"

// StatusKind tags the session status variant.
type StatusKind string

const (
	StatusInProgress  StatusKind = "in_progress"
	StatusDrawOffered StatusKind = "draw_offered"
	StatusResigned    StatusKind = "resigned"
	StatusDrawn       StatusKind = "drawn"
)

// Status is the structured session status. Exactly one variant is active,
// selected by Kind; the side fields carry the variant payload instead of
// being prefix-encoded into a turn string.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Turn   Color      `json:"turn,omitempty"`   // InProgress
	By     string     `json:"by,omitempty"`     // DrawOffered, Resigned
	Reason string     `json:"reason,omitempty"` // Resigned, Drawn
}

func InProgress(turn Color) Status      { return Status{Kind: StatusInProgress, Turn: turn} }
func DrawOffered(by string) Status      { return Status{Kind: StatusDrawOffered, By: by} }
func Resigned(by, reason string) Status { return Status{Kind: StatusResigned, By: by, Reason: reason} }
func Drawn(reason string) Status        { return Status{Kind: StatusDrawn, Reason: reason} }

// Terminal reports whether the status ends the match.
func (s Status) Terminal() bool {
	return s.Kind == StatusResigned || s.Kind == StatusDrawn
}

// OutcomeKind tags the derived match outcome.
type OutcomeKind string

const (
	OutcomeOngoing     OutcomeKind = "ongoing"
	OutcomeCheckmate   OutcomeKind = "checkmate"
	OutcomeDraw        OutcomeKind = "draw"
	OutcomeResignation OutcomeKind = "resignation"
	OutcomeAgreedDraw  OutcomeKind = "agreed_draw"
)

// Outcome is a transient value derived from position state and session
// status; it is never persisted as its own entity.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner string      `json:"winner,omitempty"`
}

func (o Outcome) Ongoing() bool { return o.Kind == OutcomeOngoing }

// Draw reports whether the outcome pays the draw delta (by rule or by
// agreement).
func (o Outcome) Draw() bool {
	return o.Kind == OutcomeDraw || o.Kind == OutcomeAgreedDraw
}

// NormalizeName canonicalizes a participant name. Names are
// case-insensitive; the canonical form is upper case so it compares
// directly against EngineName.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// PairKey derives the storage key for an unordered participant pair.
// The same two names always yield the same key regardless of color
// assignment, which is what enforces one open session per pair.
func PairKey(a, b string) string {
	x := strings.ToLower(NormalizeName(a))
	y := strings.ToLower(NormalizeName(b))
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// LedgerEntry is one participant's persisted coin balance.
type LedgerEntry struct {
	Name      string    `json:"name"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
