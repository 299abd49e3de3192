package position

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"treasure-chess/internal/domain"
)

// ErrIllegalMove is returned when the rules oracle rejects a move
// (wrong piece owner, blocked path, leaves own king in check, ...).
var ErrIllegalMove = errors.New("illegal move")

// AppliedMove reports one successfully applied ply.
type AppliedMove struct {
	UCI       string
	SAN       string
	Color     domain.Color
	Captured  string // captured piece in string form, empty when none
	Check     bool
	Checkmate bool
	Stalemate bool
}

// Position is the authoritative holder of the current board state and
// its move log. It has a single writer (the match controller) and is
// mutated only one legal move at a time, or replaced wholesale by
// LoadFrom.
type Position struct {
	game   *nchess.Game
	sanLog []string
}

func New() *Position {
	return &Position{game: nchess.NewGame()}
}

// ApplyMove delegates legality to the rules oracle. promo is an optional
// promotion piece letter ("q", "n", ...); it is ignored unless the move
// promotes.
func (p *Position) ApplyMove(from, to, promo string) (AppliedMove, error) {
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promo))
	return p.applyUCI(uci)
}

// ApplyUCI applies a move given as a single UCI token (e7e8q).
func (p *Position) ApplyUCI(token string) (AppliedMove, error) {
	return p.applyUCI(strings.ToLower(strings.TrimSpace(token)))
}

func (p *Position) applyUCI(uci string) (AppliedMove, error) {
	if len(uci) < 4 {
		return AppliedMove{}, ErrIllegalMove
	}
	pos := p.game.Position()
	// a bare from+to reaching the back rank names a promotion; default
	// the piece to a queen before asking the oracle, since a 4-char
	// token decodes but is never a legal promotion move
	if len(uci) == 4 && promotesByDefault(pos, uci) {
		uci += "q"
	}
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return AppliedMove{}, ErrIllegalMove
	}

	var captured string
	if mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant) {
		if piece := pos.Board().Piece(mv.S2()); piece != nchess.NoPiece {
			captured = piece.String()
		} else if mv.HasTag(nchess.EnPassant) {
			captured = "p"
		}
	}

	mover := colorFrom(pos.Turn())
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := p.game.Move(mv, nil); err != nil {
		return AppliedMove{}, ErrIllegalMove
	}
	p.sanLog = append(p.sanLog, san)

	return AppliedMove{
		UCI:       strings.ToLower(nchess.UCINotation{}.Encode(pos, mv)),
		SAN:       san,
		Color:     mover,
		Captured:  captured,
		Check:     mv.HasTag(nchess.Check),
		Checkmate: p.game.Method() == nchess.Checkmate,
		Stalemate: p.game.Method() == nchess.Stalemate,
	}, nil
}

// Snapshot returns the canonical notation of the current position.
// Side-effect free.
func (p *Position) Snapshot() string { return p.game.FEN() }

// Turn returns the side to move.
func (p *Position) Turn() domain.Color { return colorFrom(p.game.Position().Turn()) }

// MoveList returns the human-readable move log, one entry per ply.
func (p *Position) MoveList() []string {
	return append([]string(nil), p.sanLog...)
}

// UCILog returns the move log in wire form, one UCI token per ply.
func (p *Position) UCILog() []string {
	moves := p.game.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, strings.ToLower(mv.String()))
	}
	return out
}

// PlyCount returns the number of applied plies.
func (p *Position) PlyCount() int { return len(p.game.Moves()) }

// PieceColorAt reports the color of the piece on the named square and
// whether a piece is present at all.
func (p *Position) PieceColorAt(square string) (domain.Color, bool) {
	sq, ok := parseSquare(square)
	if !ok {
		return "", false
	}
	piece := p.game.Position().Board().Piece(sq)
	if piece == nchess.NoPiece {
		return "", false
	}
	return colorFrom(piece.Color()), true
}

// InCheck reports whether the side to move is currently in check.
func (p *Position) InCheck() bool {
	moves := p.game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// LoadFrom replaces the position wholesale with a remote or resumed
// state. When a move list is present the position is rebuilt by
// replaying it from the initial position, which keeps the notation and
// the move list mutually derivable; the FEN alone is used only for
// records without history.
func (p *Position) LoadFrom(fen string, moveUCIs []string) error {
	if len(moveUCIs) > 0 {
		game := nchess.NewGame()
		san := make([]string, 0, len(moveUCIs))
		for _, token := range moveUCIs {
			pos := game.Position()
			mv, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(token)))
			if err != nil {
				return fmt.Errorf("decode move %s: %w", token, err)
			}
			san = append(san, nchess.AlgebraicNotation{}.Encode(pos, mv))
			if err := game.Move(mv, nil); err != nil {
				return fmt.Errorf("apply move %s: %w", token, err)
			}
		}
		if want := strings.TrimSpace(fen); want != "" && game.FEN() != want {
			return fmt.Errorf("replayed notation %q does not match snapshot %q", game.FEN(), want)
		}
		p.game = game
		p.sanLog = san
		return nil
	}

	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return fmt.Errorf("parse notation: %w", err)
	}
	p.game = nchess.NewGame(opt)
	p.sanLog = nil
	return nil
}

// Outcome derives the transient match outcome from the oracle. Pure
// function of the current position; resignation and agreed draws are
// session signals and never appear here.
func (p *Position) Outcome() domain.Outcome {
	switch p.game.Outcome() {
	case nchess.WhiteWon:
		return domain.Outcome{Kind: domain.OutcomeCheckmate, Winner: string(domain.White)}
	case nchess.BlackWon:
		return domain.Outcome{Kind: domain.OutcomeCheckmate, Winner: string(domain.Black)}
	case nchess.Draw:
		return domain.Outcome{Kind: domain.OutcomeDraw}
	default:
		return domain.Outcome{Kind: domain.OutcomeOngoing}
	}
}

// ThreefoldEligible reports whether the side to move may claim a
// threefold-repetition draw.
func (p *Position) ThreefoldEligible() bool {
	for _, m := range p.game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition {
			return true
		}
	}
	return false
}

func colorFrom(c nchess.Color) domain.Color {
	if c == nchess.White {
		return domain.White
	}
	return domain.Black
}

// promotesByDefault reports whether uci moves a side-to-move pawn onto
// its back rank without naming a promotion piece.
func promotesByDefault(pos *nchess.Position, uci string) bool {
	from, ok := parseSquare(uci[:2])
	if !ok {
		return false
	}
	piece := pos.Board().Piece(from)
	if piece == nchess.NoPiece || piece.Type() != nchess.Pawn || piece.Color() != pos.Turn() {
		return false
	}
	if piece.Color() == nchess.White {
		return uci[3] == '8'
	}
	return uci[3] == '1'
}

func parseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}
