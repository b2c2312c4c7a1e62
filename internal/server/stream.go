package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonathan/script-generator/internal/types"
)

const (
	// keepAliveInterval spaces SSE comments and WebSocket pings.
	keepAliveInterval = 15 * time.Second
	wsWriteWait       = 10 * time.Second
	wsPongWait        = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is served with Access-Control-Allow-Origin: *.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// msgStreamEnded is sent when a watch ends without a terminal status.
const msgStreamEnded = "server stopped before the task finished"

// watchTask subscribes before reading the current state so no transition is
// missed between the two. The returned channel yields the current state
// first, then every later update, and closes after a terminal status, when
// ctx ends or when the runner stops.
func (s *Server) watchTask(ctx context.Context, task *types.ScriptTask) <-chan types.StatusResponse {
	out := make(chan types.StatusResponse, 1)
	updates, unsubscribe := s.deps.Runner.Watch(task.ID)

	go func() {
		defer close(out)
		defer unsubscribe()

		current := types.StatusOf(task)
		// Re-read after subscribing in case the task finished in between.
		if latest, err := s.deps.Runner.Get(ctx, task.ID); err == nil {
			current = types.StatusOf(latest)
		}
		select {
		case out <- current:
		case <-ctx.Done():
			return
		}
		if current.Status.Terminal() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.deps.Runner.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
				if update.Status.Terminal() {
					return
				}
			}
		}
	}()
	return out
}

// finalStatus re-reads a task whose watch closed early. It reports false when
// the task is still not terminal.
func (s *Server) finalStatus(ctx context.Context, taskID string) (types.StatusResponse, bool) {
	task, err := s.deps.Runner.Get(ctx, taskID)
	if err != nil || !task.Status.Terminal() {
		return types.StatusResponse{}, false
	}
	return types.StatusOf(task), true
}

// handleStatusStream streams status events over SSE until the task finishes.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Streams outlive the server-wide write timeout.
	http.NewResponseController(w).SetWriteDeadline(time.Time{}) //nolint:errcheck
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	updates := s.watchTask(ctx, task)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				final, done := s.finalStatus(ctx, task.ID)
				if !done {
					sse.WriteError(msgStreamEnded)
					return
				}
				update = final
			}
			if err := sse.WriteEvent("status", update); err != nil {
				return
			}
			if update.Status.Terminal() {
				sse.WriteComplete(update.TaskID, string(update.Status))
				return
			}
		}
	}
}

// handleStatusWebSocket pushes status frames as JSON until the task finishes,
// then closes the connection normally.
func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: handles pongs and notices when the client goes away.
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[ws] read error: %v", err)
				}
				return
			}
		}
	}()

	updates := s.watchTask(ctx, task)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				final, done := s.finalStatus(ctx, task.ID)
				if !done {
					msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, msgStreamEnded)
					conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)) //nolint:errcheck
					return
				}
				update = final
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			if err := conn.WriteJSON(update); err != nil {
				log.Printf("[ws] write failed: %v", err)
				return
			}
			if update.Status.Terminal() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(update.Status))
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)) //nolint:errcheck
				return
			}
		}
	}
}
