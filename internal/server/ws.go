package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/destinations/internal/store"
)

// handleWSState streams the same change notifications as /api/events over a
// WebSocket. Messages from the client are ignored.
func handleWSState(logger *slog.Logger, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())

		ch := st.Subscribe()
		defer st.Unsubscribe(ch)

		if err := writeWS(ctx, conn, store.Change{Reason: reasonSnapshot, State: st.Snapshot()}); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "error", ctx.Err())
				return
			case c := <-ch:
				if err := writeWS(ctx, conn, c); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, c store.Change) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, c)
}
