// Package ws streams relay frames to overlay browsers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/relay"
	"github.com/DoyleJ11/lol-draft-client/internal/session"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	TypeView     = "view"
	writeTimeout = 3 * time.Second
	outboxSize   = 8
)

// Message is what an overlay receives for every published view.
type Message struct {
	Type    string       `json:"type"`
	Version int          `json:"version"`
	View    session.View `json:"view"`
}

// Handler upgrades the request and forwards every relay frame until either
// side goes away. Inbound frames are read and dropped.
func Handler(rl *relay.Relay, log *zap.Logger, originPatterns ...string) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debug("overlay accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		out := make(chan relay.Frame, outboxSize)
		clientID, ok := rl.Subscribe(out)
		if !ok {
			conn.Close(websocket.StatusGoingAway, "relay stopped")
			return
		}
		defer rl.Unsubscribe(clientID)
		log := log.With(zap.String("client", clientID))
		log.Info("overlay connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader goroutine: overlays never talk back, but reading is what
		// notices the close handshake.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				log.Info("overlay disconnected")
				return
			case f, ok := <-out:
				if !ok {
					// Dropped as slow, or the relay stopped.
					conn.Close(websocket.StatusTryAgainLater, "stream closed")
					return
				}
				payload, err := json.Marshal(Message{Type: TypeView, Version: f.Version, View: f.View})
				if err != nil {
					log.Error("encode view", zap.Error(err))
					continue
				}
				wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
				err = conn.Write(wctx, websocket.MessageText, payload)
				wcancel()
				if err != nil {
					log.Warn("overlay write failed", zap.Error(err))
					return
				}
			}
		}
	}
}
