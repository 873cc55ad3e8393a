package server

import (
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
)

// handleWS streams a session's engine notifications over a websocket, one
// JSON text frame per notification. Each frame carries its kind, so a
// single message handler can dispatch on it. The SSE endpoint carries the
// same payloads; this exists for clients behind proxies that buffer SSE.
func handleWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "session", s.ID, "error", err)
			return
		}
		defer conn.CloseNow()

		// The stream is one-way; CloseRead cancels ctx when the client
		// goes away.
		ctx := conn.CloseRead(r.Context())

		ch := broker.Subscribe(s.ID)
		defer broker.Unsubscribe(s.ID, ch)

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, msg.data); err != nil {
					logger.Debug("websocket write failed", "session", s.ID, "error", err)
					return
				}
			}
		}
	}
}
