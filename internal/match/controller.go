package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"treasure-chess/internal/domain"
	"treasure-chess/internal/ledger"
	"treasure-chess/internal/msgcat"
	"treasure-chess/internal/obslog"
	"treasure-chess/internal/position"
	"treasure-chess/internal/session"
)

var (
	ErrMatchActive    = errors.New("a match is already active")
	ErrNoActiveMatch  = errors.New("no active match")
	ErrInvalidName    = errors.New("invalid participant name")
	ErrDrawNotOffered = errors.New("no draw offer to accept")
	ErrEngineOpponent = errors.New("operation not available against the engine")
)

// Feed is the slice of the session change feed the controller needs.
// *session.Feed satisfies it; a nil Feed disables synchronization (the
// match still plays locally).
type Feed interface {
	Publish(ctx context.Context, rec *session.Record) error
	Subscribe(ctx context.Context, pairKey string) (*session.Subscription, error)
}

// MoveRequester delivers engine moves asynchronously. *engine.Client
// satisfies it.
type MoveRequester interface {
	RequestMove(ctx context.Context, fen string, moves []string, callback func(move string, err error))
}

// Controller is the turn/authorization state machine: the single point
// where local intent, feed updates, and engine moves are unified. All
// handlers run under one mutex, so each event is processed to
// completion before the next.
type Controller struct {
	mu     sync.Mutex
	ledger *ledger.Client
	store  session.Store
	feed   Feed
	engine MoveRequester
	cat    *msgcat.Catalog

	notify   func(State)
	notifyCh chan State

	cur *MatchSession
}

func NewController(lc *ledger.Client, store session.Store, feed Feed, eng MoveRequester, cat *msgcat.Catalog) *Controller {
	return &Controller{
		ledger: lc,
		store:  store,
		feed:   feed,
		engine: eng,
		cat:    cat,
	}
}

// SetNotify registers the state-push hook. Notifications are drained by
// a single pump goroutine, so they arrive in the order the changes were
// applied; the hook runs outside the controller lock and may call back
// into the controller.
func (c *Controller) SetNotify(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
	if c.notifyCh == nil {
		c.notifyCh = make(chan State, 64)
		go c.notifyPump()
	}
}

func (c *Controller) notifyPump() {
	for st := range c.notifyCh {
		c.mu.Lock()
		fn := c.notify
		c.mu.Unlock()
		if fn != nil {
			fn(st)
		}
	}
}

// StartMatch resolves the local ledger entry and either creates or
// joins the pair's session record. An opponent name equal to the
// reserved engine identity starts an engine match instead; engine
// matches have no session record. The creator plays white.
func (c *Controller) StartMatch(ctx context.Context, localName, opponentName string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil && c.cur.Active() {
		return c.stateLocked(), ErrMatchActive
	}

	local := domain.NormalizeName(localName)
	opponent := domain.NormalizeName(opponentName)
	if local == "" || opponent == "" || local == opponent || local == domain.EngineName {
		return c.stateLocked(), ErrInvalidName
	}

	if _, err := c.ledger.EnsureParticipant(ctx, local); err != nil {
		return c.stateLocked(), fmt.Errorf("ensure participant: %w", err)
	}

	if opponent == domain.EngineName {
		c.cur = &MatchSession{
			Mode:       ModeEngine,
			LocalName:  local,
			LocalColor: domain.White,
			White:      local,
			Black:      domain.EngineName,
			Position:   position.New(),
			Phase:      PhaseLocalTurn,
			Outcome:    domain.Outcome{Kind: domain.OutcomeOngoing},
		}
		obslog.L().Info("match_start",
			zap.String("mode", string(ModeEngine)),
			zap.String("white", local))
		return c.finishLocked(), nil
	}

	rec, err := c.store.FindByPair(ctx, local, opponent)
	if errors.Is(err, session.ErrNotFound) {
		rec = session.NewRecord(local, opponent)
		err = c.store.Create(ctx, rec)
		if errors.Is(err, session.ErrSessionExists) {
			// lost the creation race, join what the opponent made
			rec, err = c.store.FindByPair(ctx, local, opponent)
		}
	}
	if err != nil {
		return c.stateLocked(), fmt.Errorf("resolve session: %w", err)
	}

	color, ok := rec.ColorOf(local)
	if !ok {
		return c.stateLocked(), ErrInvalidName
	}

	pos := position.New()
	if err := pos.LoadFrom(rec.FEN, rec.Moves); err != nil {
		return c.stateLocked(), fmt.Errorf("load session position: %w", err)
	}

	m := &MatchSession{
		Mode:       ModePvP,
		LocalName:  local,
		LocalColor: color,
		White:      rec.White,
		Black:      rec.Black,
		Record:     rec,
		Position:   pos,
		Phase:      PhaseTerminated,
		Outcome:    domain.Outcome{Kind: domain.OutcomeOngoing},
	}
	m.settled = rec.SettledAt != nil
	c.cur = m

	// a resumed record may hold a finished game whose settlement never
	// landed (client gone between the final move and the payout)
	if rec.Status.Terminal() {
		m.Outcome = outcomeFromStatus(rec.Status, m)
		c.settleLocked(ctx, m, m.Outcome)
	} else {
		m.Phase = m.phaseForTurn(pos.Turn())
		c.evaluateOutcomeLocked(ctx, m)
	}

	obslog.L().Info("match_start",
		zap.String("mode", string(ModePvP)),
		zap.String("white", rec.White),
		zap.String("black", rec.Black),
		zap.String("local_color", string(color)),
		zap.Int("resumed_plies", len(rec.Moves)))
	return c.finishLocked(), nil
}

// AttemptLocalMove applies a move for the local participant. It
// answers false, with no state change, when there is no active match,
// it is not the local side's turn, the named square does not hold a
// local piece, or the rules oracle rejects the move.
func (c *Controller) AttemptLocalMove(ctx context.Context, from, to, promo string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || m.Phase != PhaseLocalTurn {
		obslog.L().Debug("move_rejected", zap.String("reason", "not_local_turn"))
		return false
	}
	if color, ok := m.Position.PieceColorAt(from); !ok || color != m.LocalColor {
		obslog.L().Debug("move_rejected",
			zap.String("reason", "wrong_side_piece"),
			zap.String("square", from))
		return false
	}

	applied, err := m.Position.ApplyMove(from, to, promo)
	if err != nil {
		obslog.L().Debug("move_rejected",
			zap.String("reason", "illegal"),
			zap.String("from", from),
			zap.String("to", to))
		return false
	}
	m.Diverged = false
	m.LastMove = moveFact(applied)

	obslog.L().Info("move_apply",
		zap.String("uci", applied.UCI),
		zap.String("san", applied.SAN),
		zap.String("by", m.LocalName))

	m.Phase = m.phaseForTurn(m.Position.Turn())
	c.publishLocked(ctx, m, domain.InProgress(m.Position.Turn()))
	c.evaluateOutcomeLocked(ctx, m)

	if m.Mode == ModeEngine && m.Phase == PhaseRemoteTurn {
		c.requestEngineMoveLocked(m)
	}

	c.finishLocked()
	return true
}

// ReceiveEngineMove merges an engine result exactly like a remote move.
// It bypasses the local-turn authorization check; the engine is trusted
// to move only for its assigned color.
func (c *Controller) ReceiveEngineMove(ctx context.Context, moveUCI string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || m.Mode != ModeEngine || m.Phase != PhaseRemoteTurn {
		return ErrNoActiveMatch
	}

	applied, err := m.Position.ApplyUCI(moveUCI)
	if err != nil {
		obslog.L().Error("engine_move_illegal", zap.String("uci", moveUCI))
		return fmt.Errorf("apply engine move %s: %w", moveUCI, err)
	}
	m.LastMove = moveFact(applied)

	obslog.L().Info("move_apply",
		zap.String("uci", applied.UCI),
		zap.String("san", applied.SAN),
		zap.String("by", domain.EngineName))

	m.Phase = m.phaseForTurn(m.Position.Turn())
	c.evaluateOutcomeLocked(ctx, m)
	c.finishLocked()
	return nil
}

// ReceiveRemoteSnapshot reconciles a feed update against local state.
// Identical snapshots are a no-op (the feed echoes our own writes).
// Snapshots with a shorter history than the local position are stale
// out-of-order deliveries: they are flagged and dropped, never applied.
// Returns true when the snapshot changed local state.
func (c *Controller) ReceiveRemoteSnapshot(ctx context.Context, rec *session.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || m.Mode != ModePvP || m.Record == nil || rec.ID != m.Record.ID {
		return false
	}

	if len(rec.Moves) < m.Position.PlyCount() {
		m.Diverged = true
		obslog.L().Warn("feed_stale_snapshot",
			zap.Int("remote_plies", len(rec.Moves)),
			zap.Int("local_plies", m.Position.PlyCount()))
		c.finishLocked()
		return false
	}

	positionChanged := rec.FEN != m.Position.Snapshot()
	statusChanged := rec.Status != m.Record.Status
	if !positionChanged && !statusChanged {
		// a re-delivered terminal snapshot retries a payout that failed
		// after this client claimed the settlement marker
		if m.Phase == PhaseTerminated && !m.settled {
			c.settleLocked(ctx, m, m.Outcome)
			c.finishLocked()
		}
		return false
	}

	if positionChanged {
		if err := m.Position.LoadFrom(rec.FEN, rec.Moves); err != nil {
			m.Diverged = true
			obslog.L().Warn("feed_snapshot_rejected", zap.Error(err))
			c.finishLocked()
			return false
		}
		m.Diverged = false
		m.LastMove = nil
		obslog.L().Info("feed_recv",
			zap.Int("plies", len(rec.Moves)),
			zap.String("status", string(rec.Status.Kind)))
	}

	m.Record = rec
	switch {
	case rec.Status.Terminal():
		m.Phase = PhaseTerminated
		c.settleLocked(ctx, m, outcomeFromStatus(rec.Status, m))
	default:
		m.Phase = m.phaseForTurn(m.Position.Turn())
		c.evaluateOutcomeLocked(ctx, m)
	}

	c.finishLocked()
	return true
}

// Resign ends the match in the opponent's favor.
func (c *Controller) Resign(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || !m.Active() {
		return ErrNoActiveMatch
	}

	status := domain.Resigned(m.LocalName, "resigned")
	outcome := domain.Outcome{
		Kind:   domain.OutcomeResignation,
		Winner: string(m.LocalColor.Opponent()),
	}

	m.Phase = PhaseTerminated
	m.Outcome = outcome
	c.publishLocked(ctx, m, status)
	c.settleLocked(ctx, m, outcome)

	obslog.L().Info("match_resign", zap.String("by", m.LocalName))
	c.finishLocked()
	return nil
}

// OfferDraw records a draw offer on the session record. The offer does
// not change whose turn it is.
func (c *Controller) OfferDraw(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || !m.Active() {
		return ErrNoActiveMatch
	}
	if m.Mode != ModePvP {
		return ErrEngineOpponent
	}

	c.publishLocked(ctx, m, domain.DrawOffered(m.LocalName))
	obslog.L().Info("draw_offered", zap.String("by", m.LocalName))
	c.finishLocked()
	return nil
}

// AcceptDraw concludes the match as drawn by agreement. Only the side
// that did not offer may accept.
func (c *Controller) AcceptDraw(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil || !m.Active() {
		return ErrNoActiveMatch
	}
	if m.Mode != ModePvP || m.Record == nil {
		return ErrEngineOpponent
	}
	if m.Record.Status.Kind != domain.StatusDrawOffered || m.Record.Status.By == m.LocalName {
		return ErrDrawNotOffered
	}

	outcome := domain.Outcome{Kind: domain.OutcomeAgreedDraw}
	m.Phase = PhaseTerminated
	m.Outcome = outcome
	c.publishLocked(ctx, m, domain.Drawn("agreement"))
	c.settleLocked(ctx, m, outcome)

	obslog.L().Info("draw_agreed",
		zap.String("white", m.White),
		zap.String("black", m.Black))
	c.finishLocked()
	return nil
}

// LeaveMatch deletes the session record (explicit leave) and returns
// the controller to the lobby.
func (c *Controller) LeaveMatch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.cur
	if m == nil {
		return nil
	}
	if m.Mode == ModePvP && m.Record != nil {
		if err := c.store.Delete(ctx, m.Record.ID); err != nil {
			obslog.L().Warn("session_delete_failed", zap.Error(err))
		}
	}
	c.cur = nil
	obslog.L().Info("match_leave", zap.String("by", m.LocalName))
	c.finishLocked()
	return nil
}

// RunFeed subscribes to the active match's change feed and pumps
// snapshots into the controller until ctx ends or the match leaves the
// active phases. Blocking; run it in its own goroutine.
func (c *Controller) RunFeed(ctx context.Context) error {
	c.mu.Lock()
	m := c.cur
	if m == nil || m.Mode != ModePvP || m.Record == nil {
		c.mu.Unlock()
		return ErrNoActiveMatch
	}
	if c.feed == nil {
		c.mu.Unlock()
		return errors.New("no feed configured")
	}
	pairKey := m.Record.PairKey
	c.mu.Unlock()

	sub, err := c.feed.Subscribe(ctx, pairKey)
	if err != nil {
		return fmt.Errorf("subscribe feed: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-sub.C():
			if !ok {
				return nil
			}
			c.ReceiveRemoteSnapshot(ctx, rec)
		}
	}
}

// State returns the current read-only view.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) evaluateOutcomeLocked(ctx context.Context, m *MatchSession) {
	outcome := m.Position.Outcome()
	if outcome.Ongoing() {
		return
	}
	m.Outcome = outcome
	m.Phase = PhaseTerminated
	c.settleLocked(ctx, m, outcome)
}

// settleLocked applies the ledger deltas at most once per match. PvP
// matches are gated by the record's persisted settlement marker, so a
// restarted client cannot pay twice; engine matches have no record and
// rely on the in-memory flag alone. Claiming the marker and paying are
// separate steps: only a successful payout marks the match settled, so
// the claimant retries a failed payout on the next terminal event.
func (c *Controller) settleLocked(ctx context.Context, m *MatchSession, outcome domain.Outcome) {
	if m.settled {
		return
	}
	m.Outcome = outcome

	if m.Mode == ModePvP && m.Record != nil && !m.claimed {
		won, err := c.store.MarkSettled(ctx, m.Record.ID)
		if err != nil {
			obslog.L().Error("settle_mark_failed", zap.Error(err))
			return
		}
		if !won {
			m.settled = true
			obslog.L().Info("settle_skipped", zap.String("reason", "already_settled"))
			return
		}
		m.claimed = true
	}

	changes, err := c.ledger.Settle(ctx, m.White, m.Black, outcome)
	if err != nil {
		obslog.L().Error("settle_failed",
			zap.Int("applied", len(changes)),
			zap.Error(err))
		if len(changes) > 0 {
			// one side was paid before the store failed; marking the
			// match settled stops a retry from paying that side twice
			m.settled = true
		}
		return
	}
	m.settled = true
	obslog.L().Info("settle",
		zap.String("outcome", string(outcome.Kind)),
		zap.String("winner", outcome.Winner),
		zap.Int("adjustments", len(changes)))
}

// publishLocked writes the current position and status to the session
// record and broadcasts it. Store failures leave local state ahead of
// the shared record; they are logged, and the next successful write
// resynchronizes (last writer wins).
func (c *Controller) publishLocked(ctx context.Context, m *MatchSession, status domain.Status) {
	if m.Mode != ModePvP || m.Record == nil {
		return
	}
	m.Record.FEN = m.Position.Snapshot()
	m.Record.Moves = m.Position.UCILog()
	m.Record.Status = status

	if err := c.store.Update(ctx, m.Record); err != nil {
		obslog.L().Error("session_update_failed", zap.Error(err))
		return
	}
	if c.feed == nil {
		return
	}
	if err := c.feed.Publish(ctx, m.Record); err != nil {
		obslog.L().Warn("feed_publish_failed", zap.Error(err))
	}
}

func (c *Controller) requestEngineMoveLocked(m *MatchSession) {
	if c.engine == nil {
		obslog.L().Warn("engine_unavailable")
		return
	}
	moves := m.Position.UCILog()
	// the search outlives the request that triggered it (fasthttp
	// recycles its RequestCtx once the handler returns), so it runs on
	// a detached context
	searchCtx := context.Background()
	c.engine.RequestMove(searchCtx, "", moves, func(move string, err error) {
		if err != nil {
			// bounded wait expired or the engine failed; the match
			// stays in the engine's turn and a later request may retry
			obslog.L().Warn("engine_unresponsive", zap.Error(err))
			return
		}
		if err := c.ReceiveEngineMove(searchCtx, move); err != nil {
			obslog.L().Error("engine_move_rejected", zap.Error(err))
		}
	})
}

// finishLocked snapshots state and queues it for the notify pump. Must
// be the last mutation step of every handler. When the queue is full
// the oldest pending state is dropped; the newest always gets through.
func (c *Controller) finishLocked() State {
	st := c.stateLocked()
	if c.notify != nil {
		select {
		case c.notifyCh <- st:
		default:
			select {
			case <-c.notifyCh:
			default:
			}
			select {
			case c.notifyCh <- st:
			default:
			}
		}
	}
	return st
}

func (c *Controller) stateLocked() State {
	m := c.cur
	if m == nil {
		return State{Phase: PhaseLobby}
	}
	st := State{
		Phase:      m.Phase,
		Mode:       m.Mode,
		White:      m.White,
		Black:      m.Black,
		LocalColor: m.LocalColor,
		FEN:        m.Position.Snapshot(),
		Turn:       m.Position.Turn(),
		MovesSAN:   m.Position.MoveList(),
		MovesUCI:   m.Position.UCILog(),
		LastMove:   m.LastMove,
		Outcome:    m.Outcome,
		Diverged:   m.Diverged,
	}
	if m.Record != nil {
		st.Status = m.Record.Status
	} else {
		st.Status = domain.InProgress(st.Turn)
	}
	st.StatusText = c.statusText(m, st)
	return st
}

func (c *Controller) statusText(m *MatchSession, st State) string {
	if c.cat == nil {
		return ""
	}
	key, data := statusKeyData(m, st)
	text, err := c.cat.Render(key, data)
	if err != nil {
		obslog.L().Debug("msgcat_render_failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return text
}

func statusKeyData(m *MatchSession, st State) (string, map[string]string) {
	nameOf := func(color string) string {
		if color == string(domain.White) {
			return m.White
		}
		return m.Black
	}
	switch st.Outcome.Kind {
	case domain.OutcomeCheckmate:
		return "match.checkmate", map[string]string{"Winner": nameOf(st.Outcome.Winner)}
	case domain.OutcomeResignation:
		winner := nameOf(st.Outcome.Winner)
		loser := m.Black
		if winner == m.Black {
			loser = m.White
		}
		return "match.resignation", map[string]string{"Winner": winner, "Loser": loser}
	case domain.OutcomeDraw:
		return "match.draw", nil
	case domain.OutcomeAgreedDraw:
		return "match.agreed_draw", nil
	}
	if st.Status.Kind == domain.StatusDrawOffered {
		return "match.draw_offered", map[string]string{"By": st.Status.By}
	}
	return "match.in_progress", map[string]string{"Turn": string(st.Turn)}
}

// outcomeFromStatus maps a terminal status arriving over the feed onto
// the outcome used for settlement.
func outcomeFromStatus(status domain.Status, m *MatchSession) domain.Outcome {
	switch status.Kind {
	case domain.StatusResigned:
		winner := domain.White
		if status.By == m.White {
			winner = domain.Black
		}
		return domain.Outcome{Kind: domain.OutcomeResignation, Winner: string(winner)}
	case domain.StatusDrawn:
		if status.Reason == "agreement" {
			return domain.Outcome{Kind: domain.OutcomeAgreedDraw}
		}
		return domain.Outcome{Kind: domain.OutcomeDraw}
	default:
		return domain.Outcome{Kind: domain.OutcomeOngoing}
	}
}
