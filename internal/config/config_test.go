package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(nil, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultSiteURL, cfg.SiteURL)
	assert.Equal(t, 3*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 5, cfg.MaxReconnect)
	assert.Equal(t, champion.DefaultDataURL, cfg.ChampionURL)
	assert.Empty(t, cfg.OverlayAddr)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)

	assert.False(t, cfg.Room.Create)
	assert.Equal(t, "Blue team", cfg.Room.BlueTeamName)
	assert.Equal(t, 30, cfg.Room.TimePerPick)
	assert.Equal(t, 15, cfg.Room.TimePerBan)
	assert.True(t, cfg.Room.BlueTeamHasBans)
	assert.Equal(t, draft.SideNone, cfg.Room.Side)
}

func TestParse_FlagsOverrideEnv(t *testing.T) {
	env := envMap(map[string]string{
		EnvServerURL:         "wss://env.example.com/ws",
		EnvReconnectInterval: "500ms",
		EnvMaxReconnect:      "2",
		EnvLogLevel:          "debug",
		EnvOverlayAddr:       ":9000",
	})

	cfg, err := parse([]string{"-server", "ws://flag.example.com/ws", "-max-reconnect", "9"}, env)
	require.NoError(t, err)
	assert.Equal(t, "ws://flag.example.com/ws", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectInterval)
	assert.Equal(t, 9, cfg.MaxReconnect)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.OverlayAddr)
}

func TestParse_RoomFlags(t *testing.T) {
	cfg, err := parse([]string{
		"-create", "-blue-name", "T1", "-red-name", "G2",
		"-fearless", "-fearless-bans", "222, 89", "-overlay-origins", "localhost:*,obs.local",
	}, envMap(nil))
	require.NoError(t, err)
	assert.True(t, cfg.Room.Create)
	assert.Equal(t, "T1", cfg.Room.BlueTeamName)
	assert.True(t, cfg.Room.Fearless)
	assert.Equal(t, []champion.Key{222, 89}, cfg.Room.FearlessBans)
	assert.Equal(t, []string{"localhost:*", "obs.local"}, cfg.OverlayOrigins)

	cfg, err = parse([]string{"-room", "ab12cd34", "-key", "rk", "-side", "red"}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", cfg.Room.JoinID)
	assert.Equal(t, draft.SideRed, cfg.Room.Side)
}

func TestParse_CollectsAllErrors(t *testing.T) {
	env := envMap(map[string]string{
		EnvReconnectInterval: "soon",
		EnvSiteURL:           "localhost:3000",
	})
	_, err := parse([]string{
		"-server", "http://not-a-socket",
		"-log-level", "loud",
		"-create", "-room", "r1",
		"-key", "bk",
		"-side", "purple",
		"-fearless-bans", "abc",
	}, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	msg := err.Error()
	for _, want := range []string{
		EnvReconnectInterval,
		"server url",
		"site url",
		"log level",
		"exclusive",
		`side "purple"`,
		"-key needs -side",
		`fearless ban "abc"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRAFT_SITE_URL=https://draft.example.com\nDRAFT_MAX_RECONNECT=7\n"), 0o600))
	t.Setenv(EnvMaxReconnect, "1")

	cfg, err := Load(nil, path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://draft.example.com", cfg.SiteURL)
	assert.Equal(t, 1, cfg.MaxReconnect, "process env wins over the file")
}
