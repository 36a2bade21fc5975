package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/relay"
	"github.com/DoyleJ11/lol-draft-client/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	qrSize       = 256
	stateTimeout = 2 * time.Second
)

// RoomSource reports the room this process created, if any.
type RoomSource interface {
	Created() (session.RoomCreated, bool)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, status int, msg string) {
	writeJSON(w, log, status, errorBody{Error: http.StatusText(status), Message: msg})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// State returns the latest relay frame.
func State(rl *relay.Relay, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
		defer cancel()

		st, err := rl.State(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				writeError(w, log, http.StatusGatewayTimeout, "relay busy")
				return
			}
			writeError(w, log, http.StatusServiceUnavailable, "relay stopped")
			return
		}
		if st.View == nil {
			writeError(w, log, http.StatusServiceUnavailable, "no draft state yet")
			return
		}
		writeJSON(w, log, http.StatusOK, relay.Frame{Version: st.Version, View: *st.View})
	}
}

func buildLinks(rooms RoomSource, siteURL string) (session.Links, int, string) {
	created, ok := rooms.Created()
	if !ok {
		return session.Links{}, http.StatusNotFound, "no room created"
	}
	links, err := session.BuildLinks(siteURL, created)
	if err != nil {
		return session.Links{}, http.StatusInternalServerError, err.Error()
	}
	return links, http.StatusOK, ""
}

// Links returns the blue, red and spectator share links.
func Links(rooms RoomSource, siteURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		links, status, msg := buildLinks(rooms, siteURL)
		if status != http.StatusOK {
			writeError(w, log, status, msg)
			return
		}
		writeJSON(w, log, http.StatusOK, links)
	}
}

// LinkQR renders one share link as a PNG QR code.
func LinkQR(rooms RoomSource, siteURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		links, status, msg := buildLinks(rooms, siteURL)
		if status != http.StatusOK {
			writeError(w, log, status, msg)
			return
		}
		role := chi.URLParam(r, "role")
		link, ok := links.For(role)
		if !ok {
			writeError(w, log, http.StatusNotFound, "unknown role "+role)
			return
		}

		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			log.Error("render qr", zap.Error(err), zap.String("role", role))
			writeError(w, log, http.StatusInternalServerError, "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
