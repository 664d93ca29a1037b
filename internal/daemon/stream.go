package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 5 * time.Minute
	wsMaxMessage   = 4096
)

// Stream actions sent by the client
const (
	ActionAnswer   = "answer"
	ActionReview   = "review"
	ActionNavigate = "navigate"
	ActionSubmit   = "submit"
)

// Stream events sent by the server
const (
	EventSnapshot = "snapshot"
	EventFinished = "finished"
	EventError    = "error"
)

// streamRequest is one client action on the exam stream
type streamRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
	Option string `json:"option,omitempty"`
}

// streamEvent is one server message on the exam stream
type streamEvent struct {
	Type     string         `json:"type"`
	Snapshot *exam.Snapshot `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// buildUpgrader creates a websocket upgrader that accepts the configured
// origins. An empty list accepts any origin.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// streamConn serializes writes to a websocket connection
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) send(ev streamEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(ev)
}

func (c *streamConn) sendError(msg string) error {
	return c.send(streamEvent{Type: EventError, Error: msg})
}

// handleExamStream upgrades to a websocket that pushes a snapshot after
// every change to the attempt, including countdown ticks, and accepts
// answer, review, navigate and submit actions. The stream ends after the
// finished event.
func (s *Server) handleExamStream(w http.ResponseWriter, r *http.Request) {
	u := user(r)
	id := r.PathValue("id")
	attempt, err := s.exams.Get(u, id)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "attempt_id", id, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	logger := s.logger.With("attempt_id", id, "user", u)
	logger.Debug("exam stream connected")

	sc := &streamConn{conn: conn}
	snapshots, stop := attempt.Engine().Watch()
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.readStream(ctx, cancel, sc, u, id, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				final := attempt.Engine().Snapshot()
				sc.send(streamEvent{Type: EventFinished, Snapshot: &final})
				sc.mu.Lock()
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt finished"))
				sc.mu.Unlock()
				return
			}
			if err := sc.send(streamEvent{Type: EventSnapshot, Snapshot: &snap}); err != nil {
				logger.Debug("exam stream write failed", "error", err)
				return
			}
		}
	}
}

// readStream applies client actions until the connection closes
func (s *Server) readStream(ctx context.Context, cancel context.CancelFunc, sc *streamConn, u, id string, logger *slog.Logger) {
	defer cancel()

	for {
		var msg streamRequest
		sc.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if err := sc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("exam stream closed unexpectedly", "error", err)
			} else {
				logger.Debug("exam stream closed")
			}
			return
		}

		var err error
		switch msg.Action {
		case ActionAnswer:
			_, err = s.exams.Answer(u, id, msg.Index, msg.Option)
		case ActionReview:
			_, err = s.exams.ToggleReview(u, id, msg.Index)
		case ActionNavigate:
			_, err = s.exams.Navigate(u, id, msg.Index)
		case ActionSubmit:
			_, err = s.exams.Submit(ctx, u, id)
		default:
			err = errors.New("unknown action: " + msg.Action)
		}
		if err != nil {
			if sendErr := sc.sendError(err.Error()); sendErr != nil {
				return
			}
		}
	}
}
