package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"treasure-chess/internal/ledger"
	"treasure-chess/internal/match"
	"treasure-chess/internal/obslog"
	"treasure-chess/internal/session"
	"treasure-chess/pkg/matchdto"
)

// Server exposes the match controller over JSON. It carries no game
// logic of its own; every handler decodes, delegates, and encodes.
type Server struct {
	ctrl   *match.Controller
	ledger *ledger.Client
	store  session.Store

	srv *fasthttp.Server

	mu         sync.Mutex
	feedCancel context.CancelFunc
}

func NewServer(ctrl *match.Controller, lc *ledger.Client, store session.Store) *Server {
	return &Server{ctrl: ctrl, ledger: lc, store: store}
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv = &fasthttp.Server{
		Handler: s.Handler,
		Name:    "chess-club",
	}
	obslog.L().Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	s.stopFeedPump()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case method == fasthttp.MethodPost && path == "/match/start":
		s.handleStart(ctx)
	case method == fasthttp.MethodPost && path == "/match/move":
		s.handleMove(ctx)
	case method == fasthttp.MethodPost && path == "/match/resign":
		s.handleResign(ctx)
	case method == fasthttp.MethodPost && path == "/match/draw/offer":
		s.handleOfferDraw(ctx)
	case method == fasthttp.MethodPost && path == "/match/draw/accept":
		s.handleAcceptDraw(ctx)
	case method == fasthttp.MethodPost && path == "/match/leave":
		s.handleLeave(ctx)
	case method == fasthttp.MethodGet && path == "/match/state":
		writeJSON(ctx, fasthttp.StatusOK, stateDTO(s.ctrl.State()))
	case method == fasthttp.MethodGet && path == "/ledger":
		s.handleLedger(ctx)
	case method == fasthttp.MethodGet && path == "/sessions":
		s.handleSessions(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx) {
	var req matchdto.StartMatchRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "malformed request body")
		return
	}

	st, err := s.ctrl.StartMatch(ctx, req.LocalName, req.Opponent)
	switch {
	case errors.Is(err, match.ErrInvalidName):
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	case errors.Is(err, match.ErrMatchActive):
		writeError(ctx, fasthttp.StatusConflict, err.Error())
		return
	case err != nil:
		obslog.L().Error("start_match_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "match could not be started")
		return
	}

	if st.Mode == match.ModePvP {
		s.startFeedPump()
	}
	writeJSON(ctx, fasthttp.StatusOK, matchdto.StartMatchResponse{State: stateDTO(st)})
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req matchdto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "malformed request body")
		return
	}

	accepted := s.ctrl.AttemptLocalMove(ctx, req.From, req.To, req.Promo)
	writeJSON(ctx, fasthttp.StatusOK, matchdto.MoveResponse{
		Accepted: accepted,
		State:    stateDTO(s.ctrl.State()),
	})
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx) {
	s.matchOp(ctx, s.ctrl.Resign)
}

func (s *Server) handleOfferDraw(ctx *fasthttp.RequestCtx) {
	s.matchOp(ctx, s.ctrl.OfferDraw)
}

func (s *Server) handleAcceptDraw(ctx *fasthttp.RequestCtx) {
	s.matchOp(ctx, s.ctrl.AcceptDraw)
}

func (s *Server) handleLeave(ctx *fasthttp.RequestCtx) {
	s.stopFeedPump()
	s.matchOp(ctx, s.ctrl.LeaveMatch)
}

func (s *Server) matchOp(ctx *fasthttp.RequestCtx, op func(context.Context) error) {
	err := op(ctx)
	switch {
	case errors.Is(err, match.ErrNoActiveMatch):
		writeError(ctx, fasthttp.StatusConflict, err.Error())
	case errors.Is(err, match.ErrDrawNotOffered), errors.Is(err, match.ErrEngineOpponent):
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
	case err != nil:
		obslog.L().Error("match_op_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "operation failed")
	default:
		writeJSON(ctx, fasthttp.StatusOK, stateDTO(s.ctrl.State()))
	}
}

func (s *Server) handleLedger(ctx *fasthttp.RequestCtx) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		obslog.L().Error("ledger_list_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "ledger unavailable")
		return
	}
	resp := matchdto.LedgerResponse{Entries: make([]matchdto.LedgerEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, matchdto.LedgerEntry{
			Name:      e.Name,
			Balance:   e.Balance,
			UpdatedAt: e.UpdatedAt,
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleSessions(ctx *fasthttp.RequestCtx) {
	recs, err := s.store.ListOpen(ctx)
	if err != nil {
		obslog.L().Error("session_list_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "sessions unavailable")
		return
	}
	resp := matchdto.SessionsResponse{Sessions: make([]matchdto.OpenSession, 0, len(recs))}
	for _, rec := range recs {
		resp.Sessions = append(resp.Sessions, matchdto.OpenSession{
			ID:        rec.ID.String(),
			White:     rec.White,
			Black:     rec.Black,
			Plies:     len(rec.Moves),
			Status:    statusDTO(rec.Status),
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

// startFeedPump (re)starts the goroutine that drains the change feed
// into the controller for the current match.
func (s *Server) startFeedPump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedCancel != nil {
		s.feedCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.feedCancel = cancel
	go func() {
		if err := s.ctrl.RunFeed(ctx); err != nil && !errors.Is(err, context.Canceled) {
			obslog.L().Warn("feed_pump_stopped", zap.Error(err))
		}
	}()
}

func (s *Server) stopFeedPump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedCancel != nil {
		s.feedCancel()
		s.feedCancel = nil
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, matchdto.ErrorResponse{Error: msg})
}
