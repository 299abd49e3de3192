package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"treasure-chess/internal/engine/uci"
)

type oracleFunc func(ctx context.Context, req uci.SearchRequest) (string, error)

func (f oracleFunc) BestMove(ctx context.Context, req uci.SearchRequest) (string, error) {
	return f(ctx, req)
}

func TestDepthForDifficultyMonotonicAndCapped(t *testing.T) {
	prev := 0
	for d := 1; d <= 20; d++ {
		depth := DepthForDifficulty(d)
		if depth < prev {
			t.Fatalf("depth not monotonic at difficulty %d: %d < %d", d, depth, prev)
		}
		if depth > 18 {
			t.Fatalf("depth %d exceeds cap at difficulty %d", depth, d)
		}
		prev = depth
	}
	if DepthForDifficulty(-5) != DepthForDifficulty(1) {
		t.Fatalf("negative difficulty not clamped")
	}
	if DepthForDifficulty(99) != DepthForDifficulty(20) {
		t.Fatalf("oversized difficulty not clamped")
	}
}

func TestRequestMoveDeliversCallback(t *testing.T) {
	var gotReq uci.SearchRequest
	oracle := oracleFunc(func(_ context.Context, req uci.SearchRequest) (string, error) {
		gotReq = req
		return "e2e4", nil
	})
	c := NewClient(oracle, 10, time.Second)

	done := make(chan struct{})
	var move string
	var err error
	c.RequestMove(context.Background(), "startpos", []string{"d2d4"}, func(m string, e error) {
		move, err = m, e
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
	if err != nil {
		t.Fatalf("callback err: %v", err)
	}
	if move != "e2e4" {
		t.Fatalf("move = %q", move)
	}
	if gotReq.Limits.Depth != DepthForDifficulty(10) {
		t.Fatalf("depth = %d, want %d", gotReq.Limits.Depth, DepthForDifficulty(10))
	}
	if len(gotReq.Moves) != 1 || gotReq.Moves[0] != "d2d4" {
		t.Fatalf("moves = %v", gotReq.Moves)
	}
}

func TestRequestMoveNoMove(t *testing.T) {
	oracle := oracleFunc(func(context.Context, uci.SearchRequest) (string, error) {
		return "(none)", nil
	})
	c := NewClient(oracle, 5, time.Second)

	done := make(chan error, 1)
	c.RequestMove(context.Background(), "", nil, func(_ string, e error) { done <- e })

	select {
	case err := <-done:
		if !errors.Is(err, ErrNoMove) {
			t.Fatalf("err = %v, want ErrNoMove", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
}

func TestRequestMoveBoundedWait(t *testing.T) {
	oracle := oracleFunc(func(ctx context.Context, _ uci.SearchRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewClient(oracle, 5, 50*time.Millisecond)

	done := make(chan error, 1)
	c.RequestMove(context.Background(), "", nil, func(_ string, e error) { done <- e })

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout not enforced")
	}
}
