package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"treasure-chess/internal/match"
	"treasure-chess/internal/obslog"
)

const wsWriteTimeout = 3 * time.Second

// Hub pushes state snapshots to every connected websocket client.
// Wire it to the controller with SetNotify(hub.Broadcast).
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	srv *http.Server
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Broadcast sends the snapshot to all clients. A client that cannot be
// written within the timeout is dropped; it reconnects and resyncs via
// the state endpoint.
func (h *Hub) Broadcast(st match.State) {
	payload := stateDTO(st)

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		err := wsjson.Write(ctx, c, payload)
		cancel()
		if err != nil {
			h.drop(c, websocket.StatusGoingAway, "write failed")
		}
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Debug("ws_accept_failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	obslog.L().Info("ws_connect", zap.Int("clients", total))

	// clients only listen; drain until they hang up
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	h.drop(conn, websocket.StatusNormalClosure, "bye")
}

func (h *Hub) drop(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close(code, reason)
	}
}

// ListenAndServe serves the /ws endpoint on its own listener. Blocking.
func (h *Hub) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.srv = &http.Server{Addr: addr, Handler: mux}
	obslog.L().Info("ws_listen", zap.String("addr", addr))
	err := h.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for c := range h.conns {
		_ = c.Close(websocket.StatusGoingAway, "shutting down")
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}
