// Package ws serves the viewer websocket. Viewers are strictly read-only:
// every frame they receive is a redacted snapshot, and nothing they send can
// mutate a session.
package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/fairwaylive/draw-backend/internal/hub"
	"github.com/fairwaylive/draw-backend/internal/session"
	"github.com/fairwaylive/draw-backend/pkg/types"
)

// pingInterval paces the server-side keepalive. Viewers are passive, so the
// server pings; a viewer that stops answering pongs is dropped.
var pingInterval = 20 * time.Second

func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{ID: id, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := randID(6)

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		// Writer goroutine: snapshots out until the session drops us.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "snapshot", Version: snap.Version, View: &snap.View}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Keepalive goroutine: viewers never send frames, so a read deadline
		// would cut an idle but healthy connection mid-draw. The server pings
		// instead, and a failed pong ends the connection.
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-writeCtx.Done():
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(writeCtx, 5*time.Second)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						writeCancel()
						_ = conn.Close(websocket.StatusGoingAway, "ping timeout")
						return
					}
				}
			}
		}()

		// Reader loop: viewers have nothing to say, but reading keeps the
		// connection's control frames flowing and detects the close.
		for {
			_, _, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			// Any data frame from a viewer is ignored.
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
