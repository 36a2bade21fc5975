// Package config reads the client configuration from the environment, an
// optional .env file and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	EnvServerURL         = "DRAFT_WS_URL"
	EnvSiteURL           = "DRAFT_SITE_URL"
	EnvReconnectInterval = "DRAFT_RECONNECT_INTERVAL"
	EnvMaxReconnect      = "DRAFT_MAX_RECONNECT"
	EnvChampionURL       = "DRAFT_CHAMPION_URL"
	EnvOverlayAddr       = "DRAFT_OVERLAY_ADDR"
	EnvLogLevel          = "LOG_LEVEL"

	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSiteURL   = "https://localhost:3000"
)

// Room holds what to create or join once connected.
type Room struct {
	Create          bool
	BlueTeamName    string
	RedTeamName     string
	TimePerPick     int
	TimePerBan      int
	BlueTeamHasBans bool
	RedTeamHasBans  bool
	Fearless        bool
	FearlessBans    []champion.Key

	JoinID string
	Key    string
	Side   draft.Side
}

type Config struct {
	ServerURL         string
	SiteURL           string
	ReconnectInterval time.Duration
	MaxReconnect      int
	ChampionURL       string
	OverlayAddr       string
	OverlayOrigins    []string
	LogLevel          zapcore.Level
	Dev               bool

	Room Room
}

// Load reads envFiles (".env" when none are given; missing files are
// skipped), then the process environment, then args.
func Load(args []string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	fileVals := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := fileVals[k]; !ok {
				fileVals[k] = v
			}
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileVals[key]
	}
	return parse(args, lookup)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	var (
		cfg      Config
		errs     error
		level    string
		side     string
		fearless string
		origins  string
	)

	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	interval, err := time.ParseDuration(env(EnvReconnectInterval, "3s"))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrInvalid, EnvReconnectInterval, err))
	}
	maxReconnect, err := strconv.Atoi(env(EnvMaxReconnect, "5"))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrInvalid, EnvMaxReconnect, err))
	}

	flags := flag.NewFlagSet("draftclient", flag.ContinueOnError)

	// Connection (flags override env)
	flags.StringVar(&cfg.ServerURL, "server", env(EnvServerURL, DefaultServerURL), "Room server websocket URL")
	flags.StringVar(&cfg.SiteURL, "site", env(EnvSiteURL, DefaultSiteURL), "Draft website URL used in share links")
	flags.DurationVar(&cfg.ReconnectInterval, "reconnect-interval", interval, "Delay between reconnect attempts")
	flags.IntVar(&cfg.MaxReconnect, "max-reconnect", maxReconnect, "Reconnect attempts before giving up")
	flags.StringVar(&cfg.ChampionURL, "champions", env(EnvChampionURL, champion.DefaultDataURL), "Champion data URL")
	flags.StringVar(&cfg.OverlayAddr, "overlay", env(EnvOverlayAddr, ""), "Address for the overlay HTTP server (empty = off)")
	flags.StringVar(&origins, "overlay-origins", "", "Comma separated origin patterns allowed on the overlay websocket")
	flags.StringVar(&level, "log-level", env(EnvLogLevel, "info"), "Log level")
	flags.BoolVar(&cfg.Dev, "dev", false, "Development logging")

	// Create a room
	flags.BoolVar(&cfg.Room.Create, "create", false, "Create a room")
	flags.StringVar(&cfg.Room.BlueTeamName, "blue-name", "Blue team", "Blue team name")
	flags.StringVar(&cfg.Room.RedTeamName, "red-name", "Red team", "Red team name")
	flags.IntVar(&cfg.Room.TimePerPick, "pick-time", 30, "Seconds per pick")
	flags.IntVar(&cfg.Room.TimePerBan, "ban-time", 15, "Seconds per ban")
	flags.BoolVar(&cfg.Room.BlueTeamHasBans, "blue-bans", true, "Blue team bans")
	flags.BoolVar(&cfg.Room.RedTeamHasBans, "red-bans", true, "Red team bans")
	flags.BoolVar(&cfg.Room.Fearless, "fearless", false, "Fearless series")
	flags.StringVar(&fearless, "fearless-bans", "", "Comma separated champion keys banned for the series")

	// Join a room
	flags.StringVar(&cfg.Room.JoinID, "room", "", "Room id to join")
	flags.StringVar(&cfg.Room.Key, "key", "", "Team key (empty = spectator)")
	flags.StringVar(&side, "side", "", "Side the key belongs to (blue or red)")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: log level: %w", ErrInvalid, err))
	}
	cfg.LogLevel = lvl

	for _, raw := range splitList(fearless) {
		k, err := champion.ParseKey(raw)
		if err != nil || !k.Valid() {
			errs = multierr.Append(errs, fmt.Errorf("%w: fearless ban %q", ErrInvalid, raw))
			continue
		}
		cfg.Room.FearlessBans = append(cfg.Room.FearlessBans, k)
	}
	cfg.OverlayOrigins = splitList(origins)

	if side != "" {
		s, ok := draft.ParseSide(side)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: side %q", ErrInvalid, side))
		}
		cfg.Room.Side = s
	}

	errs = multierr.Append(errs, cfg.validate())
	if errs != nil {
		return Config{}, errs
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs error
	if err := checkURL(c.ServerURL, "ws", "wss"); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: server url: %w", ErrInvalid, err))
	}
	if err := checkURL(c.SiteURL, "http", "https"); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: site url: %w", ErrInvalid, err))
	}
	if err := checkURL(c.ChampionURL, "http", "https"); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: champion url: %w", ErrInvalid, err))
	}
	if c.ReconnectInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: reconnect interval must be positive", ErrInvalid))
	}
	if c.MaxReconnect < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: max reconnect must not be negative", ErrInvalid))
	}
	if c.Room.Create && c.Room.JoinID != "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: -create and -room are exclusive", ErrInvalid))
	}
	if c.Room.Key != "" && c.Room.Side == draft.SideNone {
		errs = multierr.Append(errs, fmt.Errorf("%w: -key needs -side", ErrInvalid))
	}
	return errs
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q: want %s", raw, strings.Join(schemes, " or "))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
