package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/config"
	"github.com/DoyleJ11/lol-draft-client/internal/conn"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/DoyleJ11/lol-draft-client/internal/httpapi"
	"github.com/DoyleJ11/lol-draft-client/internal/relay"
	"github.com/DoyleJ11/lol-draft-client/internal/session"
	"github.com/DoyleJ11/lol-draft-client/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	loader := champion.NewLoader(cfg.ChampionURL, &http.Client{Timeout: 10 * time.Second}, log)
	cat, err := loader.Load(ctx)
	if err != nil {
		// Numeric keys still work without names.
		log.Warn("champion data unavailable", zap.Error(err))
	}

	mgr := conn.New(cfg.ServerURL,
		conn.WithReconnectInterval(cfg.ReconnectInterval),
		conn.WithMaxReconnectAttempts(cfg.MaxReconnect),
		conn.WithLogger(log.Named("conn")),
	)
	defer mgr.Close()

	sess := session.New(mgr, session.WithLogger(log.Named("session")), session.WithCatalog(cat))
	defer sess.Close()

	rl := relay.New(ctx, log.Named("relay"))
	defer func() {
		rl.Shutdown()
		<-rl.Done()
	}()
	sess.OnView(rl.Publish)

	sess.OnSnapshot(func(s draft.Snapshot) {
		sum := draft.Summarize(s, sess.Side())
		log.Info("draft",
			zap.String("phase", string(s.Phase)),
			zap.String("action", sum.ActionLabel),
			zap.Int("time_remaining", s.TimeRemaining),
		)
	})
	sess.OnServerError(func(msg string) {
		fmt.Fprintln(os.Stderr, "server:", msg)
	})
	sess.OnUserJoined(func(m types.UserJoinedMessage) {
		log.Info("participant joined", zap.String("team", m.Team))
	})

	room := cfg.Room
	if room.Create {
		// Create once the socket is up, then follow the new room as a
		// spectator so the overlay has something to show.
		var once sync.Once
		mgr.Subscribe(conn.ObserverFuncs{Open: func() {
			once.Do(func() {
				sess.CreateRoom(session.RoomConfig{
					BlueTeamName:    room.BlueTeamName,
					RedTeamName:     room.RedTeamName,
					BlueTeamHasBans: room.BlueTeamHasBans,
					RedTeamHasBans:  room.RedTeamHasBans,
					TimePerPick:     room.TimePerPick,
					TimePerBan:      room.TimePerBan,
					Fearless:        room.Fearless,
					FearlessBans:    room.FearlessBans,
				})
			})
		}})
		sess.OnRoomCreated(func(rc session.RoomCreated) {
			links, err := session.BuildLinks(cfg.SiteURL, rc)
			if err != nil {
				log.Error("build share links", zap.Error(err))
			} else {
				fmt.Printf("room %s\n  blue:      %s\n  red:       %s\n  spectator: %s\n",
					rc.RoomID, links.Blue, links.Red, links.Spectator)
			}
			sess.JoinRoom(rc.RoomID, "", draft.SideNone)
		})
	} else if room.JoinID != "" {
		// Sent on open if the socket is not up yet.
		sess.JoinRoom(room.JoinID, room.Key, room.Side)
	}

	mgr.Connect()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.OverlayAddr != "" {
		srv := &http.Server{
			Addr: cfg.OverlayAddr,
			Handler: httpapi.SetupRoutes(httpapi.Deps{
				Relay:          rl,
				Rooms:          sess,
				SiteURL:        cfg.SiteURL,
				Log:            log.Named("http"),
				OriginPatterns: cfg.OverlayOrigins,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("overlay listening", zap.String("addr", cfg.OverlayAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("overlay server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if commandLoop(gctx, sess, cat, os.Stdin, os.Stdout) {
			return errQuit
		}
		// stdin closed; keep following the draft until interrupted
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

var errQuit = errors.New("quit")
