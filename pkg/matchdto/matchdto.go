// Package matchdto holds the request/response types crossing the UI
// boundary. They mirror the controller's state without exposing
// internal types to clients.
package matchdto

import "time"

type StartMatchRequest struct {
	LocalName string `json:"local_name"`
	Opponent  string `json:"opponent"`
}

type StartMatchResponse struct {
	State *MatchState `json:"state"`
}

type MoveRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Promo string `json:"promo,omitempty"`
}

type MoveResponse struct {
	Accepted bool        `json:"accepted"`
	State    *MatchState `json:"state"`
}

type MatchState struct {
	Phase      string    `json:"phase"`
	Mode       string    `json:"mode,omitempty"`
	White      string    `json:"white,omitempty"`
	Black      string    `json:"black,omitempty"`
	LocalColor string    `json:"local_color,omitempty"`
	FEN        string    `json:"fen,omitempty"`
	Turn       string    `json:"turn,omitempty"`
	MovesSAN   []string  `json:"moves_san,omitempty"`
	MovesUCI   []string  `json:"moves_uci,omitempty"`
	LastMove   *LastMove `json:"last_move,omitempty"`
	Status     Status    `json:"status"`
	Outcome    Outcome   `json:"outcome"`
	StatusText string    `json:"status_text,omitempty"`
	Diverged   bool      `json:"diverged,omitempty"`
}

// LastMove reports the facts of the most recent applied ply so clients
// can play capture and check cues.
type LastMove struct {
	UCI       string `json:"uci"`
	SAN       string `json:"san"`
	Captured  string `json:"captured,omitempty"`
	Check     bool   `json:"check,omitempty"`
	Checkmate bool   `json:"checkmate,omitempty"`
}

type Status struct {
	Kind   string `json:"kind"`
	Turn   string `json:"turn,omitempty"`
	By     string `json:"by,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Outcome struct {
	Kind   string `json:"kind"`
	Winner string `json:"winner,omitempty"`
}

type LedgerEntry struct {
	Name      string    `json:"name"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

type OpenSession struct {
	ID        string    `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Plies     int       `json:"plies"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionsResponse struct {
	Sessions []OpenSession `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
