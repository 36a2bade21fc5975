package httpapi

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/relay"
	"github.com/DoyleJ11/lol-draft-client/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Relay          *relay.Relay
	Rooms          RoomSource
	SiteURL        string
	Log            *zap.Logger
	OriginPatterns []string
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", Healthz)
	r.Get("/state", State(d.Relay, log))
	r.Get("/links", Links(d.Rooms, d.SiteURL, log))
	r.Get("/links/{role}/qr.png", LinkQR(d.Rooms, d.SiteURL, log))
	r.Get("/ws", ws.Handler(d.Relay, log, d.OriginPatterns...))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
