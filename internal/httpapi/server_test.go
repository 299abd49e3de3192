package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"treasure-chess/internal/domain"
	"treasure-chess/internal/ledger"
	"treasure-chess/internal/match"
	"treasure-chess/internal/session"
	"treasure-chess/pkg/matchdto"
)

func newTestServer() *Server {
	lc := ledger.NewClient(ledger.NewMemStore(), 50)
	store := session.NewMemStore()
	ctrl := match.NewController(lc, store, nil, nil, nil)
	return NewServer(ctrl, lc, store)
}

func do(t *testing.T, s *Server, method, path string, body any) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		ctx.Request.SetBody(payload)
	}
	s.Handler(&ctx)
	return &ctx
}

func decode[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(ctx.Response.Body(), &v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, ctx.Response.Body())
	}
	return v
}

func TestStartAndMove(t *testing.T) {
	s := newTestServer()

	ctx := do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{
		LocalName: "alice",
		Opponent:  domain.EngineName,
	})
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("start status = %d", ctx.Response.StatusCode())
	}
	start := decode[matchdto.StartMatchResponse](t, ctx)
	if start.State.Phase != string(match.PhaseLocalTurn) {
		t.Fatalf("phase = %q", start.State.Phase)
	}

	ctx = do(t, s, "POST", "/match/move", matchdto.MoveRequest{From: "e2", To: "e4"})
	move := decode[matchdto.MoveResponse](t, ctx)
	if !move.Accepted {
		t.Fatalf("legal move not accepted")
	}
	if move.State.FEN == "" || len(move.State.MovesUCI) != 1 {
		t.Fatalf("state after move = %+v", move.State)
	}
	if move.State.LastMove == nil || move.State.LastMove.UCI != "e2e4" || move.State.LastMove.SAN != "e4" {
		t.Fatalf("last move = %+v", move.State.LastMove)
	}

	ctx = do(t, s, "POST", "/match/move", matchdto.MoveRequest{From: "e7", To: "e5"})
	move = decode[matchdto.MoveResponse](t, ctx)
	if move.Accepted {
		t.Fatalf("move accepted during the engine's turn")
	}
}

func TestStartValidationErrors(t *testing.T) {
	s := newTestServer()

	ctx := do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{LocalName: "alice", Opponent: "alice"})
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("self-match status = %d", ctx.Response.StatusCode())
	}

	do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{LocalName: "alice", Opponent: domain.EngineName})
	ctx = do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{LocalName: "alice", Opponent: domain.EngineName})
	if ctx.Response.StatusCode() != fasthttp.StatusConflict {
		t.Fatalf("double start status = %d", ctx.Response.StatusCode())
	}
}

func TestResignWithoutMatch(t *testing.T) {
	s := newTestServer()
	ctx := do(t, s, "POST", "/match/resign", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusConflict {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
}

func TestLedgerListing(t *testing.T) {
	s := newTestServer()
	do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{LocalName: "alice", Opponent: domain.EngineName})

	ctx := do(t, s, "GET", "/ledger", nil)
	resp := decode[matchdto.LedgerResponse](t, ctx)
	if len(resp.Entries) != 1 || resp.Entries[0].Name != "ALICE" || resp.Entries[0].Balance != 50 {
		t.Fatalf("entries = %+v", resp.Entries)
	}
}

func TestSessionListing(t *testing.T) {
	s := newTestServer()
	do(t, s, "POST", "/match/start", matchdto.StartMatchRequest{LocalName: "alice", Opponent: "bob"})

	ctx := do(t, s, "GET", "/sessions", nil)
	resp := decode[matchdto.SessionsResponse](t, ctx)
	if len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %+v", resp.Sessions)
	}
	if got := resp.Sessions[0]; got.White != "ALICE" || got.Black != "BOB" {
		t.Fatalf("session = %+v", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer()
	ctx := do(t, s, "GET", "/nope", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
}
