package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/conn"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/DoyleJ11/lol-draft-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errGone = errors.New("server gone")

// serverLink plays the room server for one connection.
type serverLink struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newServerLink() *serverLink {
	return &serverLink{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (l *serverLink) Read(ctx context.Context) ([]byte, error) {
	select {
	case d := <-l.in:
		return d, nil
	case <-l.closed:
		return nil, errGone
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *serverLink) Write(ctx context.Context, data []byte) error {
	select {
	case l.out <- data:
		return nil
	case <-l.closed:
		return errGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *serverLink) Close(string) error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

type harness struct {
	mgr   *conn.Manager
	sess  *Session
	links chan *serverLink
	opens chan struct{}
	snaps chan draft.Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		links: make(chan *serverLink, 8),
		opens: make(chan struct{}, 8),
		snaps: make(chan draft.Snapshot, 16),
	}
	dial := func(ctx context.Context, url string) (conn.Link, error) {
		l := newServerLink()
		h.links <- l
		return l, nil
	}
	h.mgr = conn.New("ws://draft.test/ws",
		conn.WithDialer(dial),
		conn.WithReconnectInterval(30*time.Millisecond),
	)
	h.sess = New(h.mgr)
	h.sess.OnSnapshot(func(s draft.Snapshot) { h.snaps <- s })
	// Subscribed after the session, so it fires once the session has seen open.
	h.mgr.Subscribe(conn.ObserverFuncs{Open: func() { h.opens <- struct{}{} }})
	t.Cleanup(func() {
		h.sess.Close()
		_ = h.mgr.Close()
	})
	return h
}

func (h *harness) connect(t *testing.T) *serverLink {
	t.Helper()
	h.mgr.Connect()
	var l *serverLink
	select {
	case l = <-h.links:
	case <-time.After(time.Second):
		t.Fatal("no dial")
	}
	select {
	case <-h.opens:
	case <-time.After(time.Second):
		t.Fatal("no open")
	}
	return l
}

func nextFrame(t *testing.T, l *serverLink) map[string]any {
	t.Helper()
	select {
	case data := <-l.out:
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no frame sent")
		return nil
	}
}

func noFrame(t *testing.T, l *serverLink) {
	t.Helper()
	select {
	case data := <-l.out:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func nextSnapshot(t *testing.T, h *harness) draft.Snapshot {
	t.Helper()
	select {
	case s := <-h.snaps:
		return s
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
		return draft.Snapshot{}
	}
}

func status(phase string, blueBans ...string) []byte {
	bans := []string{"-1", "-1", "-1", "-1", "-1"}
	copy(bans, blueBans)
	m := types.StatusMessage{
		Type:          types.TypeStatus,
		CurrentPhase:  phase,
		TimePerPick:   30,
		TimePerBan:    30,
		TimeRemaining: 30,
		TimerActive:   true,
		FearlessBans:  []string{"222"},
		BlueTeam:      types.TeamStatus{Name: "T1", Bans: bans, Picks: []string{"-1", "-1", "-1"}},
		RedTeam:       types.TeamStatus{Name: "G2", Bans: []string{"", "", "", "", ""}, Picks: []string{"", "", ""}},
	}
	b, _ := json.Marshal(m)
	return b
}

// joinedAs binds the session to side and feeds it a first status.
func joinedAs(t *testing.T, h *harness, side draft.Side, first []byte) *serverLink {
	t.Helper()
	l := h.connect(t)
	require.True(t, h.sess.JoinRoom("room1", "k-"+string(side), side))
	join := nextFrame(t, l)
	require.Equal(t, "join", join["type"])
	l.in <- first
	nextSnapshot(t, h)
	require.Equal(t, StateJoined, h.sess.State())
	return l
}

func TestSession_StatusDrivesPhaseFacts(t *testing.T) {
	for _, side := range []draft.Side{draft.SideBlue, draft.SideRed} {
		t.Run(string(side), func(t *testing.T) {
			h := newHarness(t)
			l := h.connect(t)
			require.True(t, h.sess.JoinRoom("room1", "key", side))
			_ = nextFrame(t, l)
			assert.Equal(t, StateJoining, h.sess.State())

			l.in <- status("BanBlue1")
			snap := nextSnapshot(t, h)

			ref, ok := draft.NextActor(snap.Phase)
			require.True(t, ok)
			assert.Equal(t, draft.SlotRef{Side: draft.SideBlue, Kind: draft.ActionBan, Index: 0}, ref)

			v := h.sess.View()
			require.NotNil(t, v.Summary)
			assert.Equal(t, side == draft.SideRed, v.Summary.Blocked)
			assert.Equal(t, StateJoined, v.State)
			assert.Equal(t, conn.StateConnected, v.Connection.State)
		})
	}
}

func TestSession_DisallowedChampions(t *testing.T) {
	h := newHarness(t)
	_ = joinedAs(t, h, draft.SideBlue, status("BanRed1", "89"))

	snap, ok := h.sess.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.IsDisallowed(89))
	assert.False(t, snap.IsDisallowed(12))
	assert.True(t, snap.IsFearlessBanned(222))
}

func TestSession_ChampSelectGating(t *testing.T) {
	h := newHarness(t)
	l := joinedAs(t, h, draft.SideRed, status("BanRed1", "89"))

	assert.False(t, h.sess.Hover(89), "banned by blue")
	assert.False(t, h.sess.Hover(222), "fearless banned")
	assert.False(t, h.sess.SubmitAction(types.ActionChampSelect, 0), "empty key")
	noFrame(t, l)

	require.True(t, h.sess.Hover(12))
	f := nextFrame(t, l)
	assert.Equal(t, map[string]any{"type": "action", "action": "champ_select", "champion": "12"}, f)
	noFrame(t, l)
}

func TestSession_NotYourTurn(t *testing.T) {
	h := newHarness(t)
	l := joinedAs(t, h, draft.SideBlue, status("BanRed1"))

	assert.False(t, h.sess.Hover(12))
	assert.False(t, h.sess.Lock(12))
	assert.False(t, h.sess.SubmitReady())
	assert.False(t, h.sess.SubmitAction("dance", 12))
	noFrame(t, l)
}

func TestSession_HoverAndLockOnActiveSlot(t *testing.T) {
	tests := []struct {
		name   string
		submit func(s *Session) bool
		sent   bool
		action string
	}{
		{name: "hover again", submit: func(s *Session) bool { return s.Hover(89) }},
		{name: "lock hovered", submit: func(s *Session) bool { return s.Lock(89) }, sent: true, action: "champ_pick"},
		{name: "hover other", submit: func(s *Session) bool { return s.Hover(12) }, sent: true, action: "champ_select"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			// blue hovered 89, so the server already shows it in blue's active slot
			l := joinedAs(t, h, draft.SideBlue, status("BanBlue1", "89"))

			snap, ok := h.sess.Snapshot()
			require.True(t, ok)
			require.True(t, snap.IsDisallowed(89))

			assert.Equal(t, tt.sent, tt.submit(h.sess))
			if tt.sent {
				f := nextFrame(t, l)
				assert.Equal(t, tt.action, f["action"])
			}
			noFrame(t, l)
		})
	}
}

func TestSession_JoinWhileOpenQueued(t *testing.T) {
	links := make(chan *serverLink, 2)
	mgr := conn.New("ws://draft.test/ws", conn.WithDialer(func(ctx context.Context, url string) (conn.Link, error) {
		l := newServerLink()
		links <- l
		return l, nil
	}), conn.WithReconnectInterval(30*time.Millisecond))
	// Holds the dispatcher so the open event is still queued for the session.
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	mgr.Subscribe(conn.ObserverFuncs{Open: func() { <-release }})
	sess := New(mgr)
	opens := make(chan struct{}, 2)
	mgr.Subscribe(conn.ObserverFuncs{Open: func() { opens <- struct{}{} }})
	t.Cleanup(func() {
		unblock()
		sess.Close()
		_ = mgr.Close()
	})

	mgr.Connect()
	var l *serverLink
	select {
	case l = <-links:
	case <-time.After(time.Second):
		t.Fatal("no dial")
	}
	require.Eventually(t, mgr.Connected, time.Second, 5*time.Millisecond)

	require.True(t, sess.JoinRoom("room1", "bk", draft.SideBlue))
	assert.Equal(t, map[string]any{"type": "join", "room_id": "room1", "key": "bk"}, nextFrame(t, l))

	unblock()
	select {
	case <-opens:
	case <-time.After(time.Second):
		t.Fatal("no open")
	}
	noFrame(t, l)

	// A later connection still gets the join.
	_ = l.Close("")
	var next *serverLink
	select {
	case next = <-links:
	case <-time.After(5 * time.Second):
		t.Fatal("no reconnect")
	}
	assert.Equal(t, map[string]any{"type": "join", "room_id": "room1", "key": "bk"}, nextFrame(t, next))
}

func TestSession_Ready(t *testing.T) {
	h := newHarness(t)
	l := joinedAs(t, h, draft.SideRed, status("BlueReady"))

	require.True(t, h.sess.SubmitReady())
	assert.Equal(t, map[string]any{"type": "action", "action": "ready"}, nextFrame(t, l))

	l.in <- status("RedReady")
	nextSnapshot(t, h)
	assert.False(t, h.sess.SubmitReady(), "red already readied")
	noFrame(t, l)
}

func TestSession_SpectatorCannotAct(t *testing.T) {
	h := newHarness(t)
	l := h.connect(t)

	require.True(t, h.sess.JoinRoom("room1", "", draft.SideBlue))
	assert.Equal(t, map[string]any{"type": "join", "room_id": "room1"}, nextFrame(t, l))
	assert.Equal(t, draft.SideNone, h.sess.Side())

	l.in <- status("NoReady")
	nextSnapshot(t, h)
	assert.False(t, h.sess.SubmitReady())
	assert.False(t, h.sess.Hover(12))
	noFrame(t, l)
}

func TestSession_FinishedRejectsActions(t *testing.T) {
	h := newHarness(t)
	l := joinedAs(t, h, draft.SideBlue, status("Finished"))

	assert.False(t, h.sess.SubmitReady())
	assert.False(t, h.sess.Lock(12))
	noFrame(t, l)

	v := h.sess.View()
	require.NotNil(t, v.Summary)
	assert.True(t, v.Summary.Terminal)
	assert.Equal(t, "Finished", v.Summary.ActionLabel)
}

func TestSession_BadFramesAreDiscarded(t *testing.T) {
	h := newHarness(t)
	l := joinedAs(t, h, draft.SideBlue, status("BanBlue1"))

	l.in <- []byte(`{"type":`)
	l.in <- []byte(`{"type":"mystery"}`)
	l.in <- status("BanBlue9")
	l.in <- []byte(`{"type":"status","current_phase":"BanRed1","blue_team":{"bans":["abc"]}}`)
	l.in <- status("BanRed1")

	snap := nextSnapshot(t, h)
	assert.Equal(t, draft.BanRed1, snap.Phase)
	select {
	case s := <-h.snaps:
		t.Fatalf("unexpected snapshot %v", s.Phase)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_StatusWhileUnboundIgnored(t *testing.T) {
	h := newHarness(t)
	l := h.connect(t)

	l.in <- status("BanBlue1")
	select {
	case <-h.snaps:
		t.Fatal("snapshot accepted while unbound")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateUnbound, h.sess.State())
	_, ok := h.sess.Snapshot()
	assert.False(t, ok)
}

func TestSession_RejoinsAfterReconnect(t *testing.T) {
	h := newHarness(t)
	first := joinedAs(t, h, draft.SideRed, status("BanBlue1"))

	_ = first.Close("")

	var second *serverLink
	select {
	case second = <-h.links:
	case <-time.After(time.Second):
		t.Fatal("no reconnect")
	}
	// The join must be the first thing written on the new connection.
	join := nextFrame(t, second)
	assert.Equal(t, map[string]any{"type": "join", "room_id": "room1", "key": "k-red"}, join)
	assert.Equal(t, StateJoining, h.sess.State())
	assert.Equal(t, draft.SideRed, h.sess.Side())

	second.in <- status("BanRed1")
	snap := nextSnapshot(t, h)
	assert.Equal(t, draft.BanRed1, snap.Phase)
	assert.Equal(t, StateJoined, h.sess.State())
	assert.True(t, h.sess.Hover(12))
}

func TestSession_JoinBeforeConnect(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.sess.JoinRoom("room1", "bk", draft.SideBlue), "not connected yet")
	assert.Equal(t, StateJoining, h.sess.State())

	l := h.connect(t)
	assert.Equal(t, map[string]any{"type": "join", "room_id": "room1", "key": "bk"}, nextFrame(t, l))
}

func TestSession_CreateRoom(t *testing.T) {
	h := newHarness(t)
	l := h.connect(t)

	created := make(chan RoomCreated, 1)
	h.sess.OnRoomCreated(func(rc RoomCreated) { created <- rc })

	assert.False(t, h.sess.CreateRoom(RoomConfig{BlueTeamName: "T1"}))
	noFrame(t, l)

	cfg := RoomConfig{
		BlueTeamName:    "T1",
		RedTeamName:     "G2",
		BlueTeamHasBans: true,
		RedTeamHasBans:  true,
		TimePerPick:     30,
		TimePerBan:      20,
		FearlessBans:    []champion.Key{222, 89},
	}
	require.True(t, h.sess.CreateRoom(cfg))
	f := nextFrame(t, l)
	assert.Equal(t, "create", f["type"])
	assert.Equal(t, []any{"222", "89"}, f["fearless_bans"])
	assert.Equal(t, float64(20), f["time_per_ban"])

	l.in <- []byte(`{"type":"create_response","room_id":"ab12cd34","blue_team_key":"bk","red_team_key":"rk"}`)
	select {
	case rc := <-created:
		assert.Equal(t, RoomCreated{RoomID: "ab12cd34", BlueKey: "bk", RedKey: "rk", Fearless: true}, rc)
	case <-time.After(time.Second):
		t.Fatal("no create ack")
	}
	got, ok := h.sess.Created()
	require.True(t, ok)
	assert.Equal(t, "ab12cd34", got.RoomID)
	assert.Equal(t, StateUnbound, h.sess.State(), "creating does not join")
}

func TestSession_ServerNotices(t *testing.T) {
	h := newHarness(t)
	l := h.connect(t)

	errs := make(chan string, 1)
	joined := make(chan types.UserJoinedMessage, 1)
	h.sess.OnServerError(func(msg string) { errs <- msg })
	h.sess.OnUserJoined(func(m types.UserJoinedMessage) { joined <- m })

	l.in <- []byte(`{"type":"success","message":"ok"}`)
	l.in <- []byte(`{"type":"error","message":"invalid key"}`)
	l.in <- []byte(`{"type":"user_joined","message":"blue joined","team":"blue"}`)

	select {
	case msg := <-errs:
		assert.Equal(t, "invalid key", msg)
	case <-time.After(time.Second):
		t.Fatal("no server error")
	}
	select {
	case m := <-joined:
		assert.Equal(t, "blue", m.Team)
	case <-time.After(time.Second):
		t.Fatal("no user joined")
	}
}

func TestSession_ObserversGetCopies(t *testing.T) {
	h := newHarness(t)
	_ = joinedAs(t, h, draft.SideBlue, status("BanRed1", "89"))

	snap, ok := h.sess.Snapshot()
	require.True(t, ok)
	snap.Blue.Bans[0] = 1

	again, _ := h.sess.Snapshot()
	assert.Equal(t, champion.Key(89), again.Blue.Bans[0])
}

func TestSession_ViewUpdates(t *testing.T) {
	h := newHarness(t)
	views := make(chan View, 16)
	h.sess.OnView(func(v View) { views <- v })

	l := h.connect(t)
	select {
	case v := <-views:
		assert.Equal(t, StateUnbound, v.State)
		assert.Nil(t, v.Snapshot)
	case <-time.After(time.Second):
		t.Fatal("no view on open")
	}

	require.True(t, h.sess.JoinRoom("room1", "bk", draft.SideBlue))
	_ = nextFrame(t, l)
	l.in <- status("BanBlue1")
	select {
	case v := <-views:
		require.NotNil(t, v.Summary)
		assert.Equal(t, "Ban", v.Summary.ActionLabel)
		assert.Equal(t, "room1", v.RoomID)
	case <-time.After(time.Second):
		t.Fatal("no view on status")
	}
}

func TestRoomConfig_Validate(t *testing.T) {
	ok := RoomConfig{BlueTeamName: "T1", RedTeamName: "G2", TimePerPick: 30, TimePerBan: 30}
	require.NoError(t, ok.Validate())

	bad := RoomConfig{BlueTeamName: " ", TimePerPick: 0, TimePerBan: -1, FearlessBans: []champion.Key{0}}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRoomConfig)
	assert.Contains(t, err.Error(), "red team name is empty")
	assert.Contains(t, err.Error(), "fearless ban 0")
}

func TestSnapshotFromStatus_ShortSlotsPadded(t *testing.T) {
	snap, err := snapshotFromStatus(types.StatusMessage{
		CurrentPhase: "PickBlue1",
		BlueTeam:     types.TeamStatus{Bans: []string{"1", "2"}},
	})
	require.NoError(t, err)
	assert.Len(t, snap.Blue.Bans, draft.BanSlots)
	assert.Equal(t, champion.NoKey, snap.Blue.Bans[4])
	assert.Len(t, snap.Red.Picks, draft.PickSlots)

	_, err = snapshotFromStatus(types.StatusMessage{
		CurrentPhase: "PickBlue1",
		RedTeam:      types.TeamStatus{Picks: []string{"1", "2", "3", "4"}},
	})
	assert.ErrorIs(t, err, ErrBadStatus)
}
