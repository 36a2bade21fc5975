// Package session binds a connection to one draft room. It turns inbound
// status frames into draft snapshots and gates outbound intents through the
// phase rules before they reach the wire.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/conn"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/DoyleJ11/lol-draft-client/pkg/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrInvalidRoomConfig = errors.New("invalid room config")
	ErrBadStatus         = errors.New("bad status frame")
)

type State string

const (
	StateUnbound State = "unbound"
	StateJoining State = "joining"
	StateJoined  State = "joined"
)

// Transport is the part of conn.Manager a session needs. Send must not block
// or call back into the session; it runs under the session's lock.
type Transport interface {
	Send(v any) bool
	Subscribe(o conn.Observer) func()
	Status() conn.Status
}

// RoomConfig describes a room to create. Budgets are in seconds.
type RoomConfig struct {
	BlueTeamName    string
	RedTeamName     string
	BlueTeamHasBans bool
	RedTeamHasBans  bool
	TimePerPick     int
	TimePerBan      int
	Fearless        bool
	FearlessBans    []champion.Key
}

func (c RoomConfig) Validate() error {
	var err error
	if strings.TrimSpace(c.BlueTeamName) == "" {
		err = multierr.Append(err, fmt.Errorf("%w: blue team name is empty", ErrInvalidRoomConfig))
	}
	if strings.TrimSpace(c.RedTeamName) == "" {
		err = multierr.Append(err, fmt.Errorf("%w: red team name is empty", ErrInvalidRoomConfig))
	}
	if c.TimePerPick <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: time per pick must be positive", ErrInvalidRoomConfig))
	}
	if c.TimePerBan <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: time per ban must be positive", ErrInvalidRoomConfig))
	}
	for _, k := range c.FearlessBans {
		if !k.Valid() {
			err = multierr.Append(err, fmt.Errorf("%w: fearless ban %d", ErrInvalidRoomConfig, k))
		}
	}
	return err
}

func (c RoomConfig) message() types.CreateMessage {
	m := types.CreateMessage{
		BlueTeamName:    strings.TrimSpace(c.BlueTeamName),
		RedTeamName:     strings.TrimSpace(c.RedTeamName),
		BlueTeamHasBans: c.BlueTeamHasBans,
		RedTeamHasBans:  c.RedTeamHasBans,
		TimePerPick:     c.TimePerPick,
		TimePerBan:      c.TimePerBan,
	}
	for _, k := range c.FearlessBans {
		m.FearlessBans = append(m.FearlessBans, k.String())
	}
	return types.NewCreate(m)
}

// RoomCreated is the server's acknowledgment of a create intent.
type RoomCreated struct {
	RoomID   string `json:"room_id"`
	BlueKey  string `json:"blue_key"`
	RedKey   string `json:"red_key"`
	Fearless bool   `json:"fearless"`
}

// View is everything a renderer needs at one instant.
type View struct {
	State      State           `json:"state"`
	Connection conn.Status     `json:"connection"`
	RoomID     string          `json:"room_id,omitempty"`
	Side       draft.Side      `json:"side"`
	Snapshot   *draft.Snapshot `json:"snapshot,omitempty"`
	Summary    *draft.Summary  `json:"summary,omitempty"`
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithCatalog is used to put champion names in logs.
func WithCatalog(c *champion.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// Session is safe for concurrent use. Observer callbacks run on the
// transport's dispatch goroutine, one at a time and in frame order.
type Session struct {
	t       Transport
	log     *zap.Logger
	catalog *champion.Catalog
	unsub   func()

	mu      sync.Mutex
	state   State
	roomID  string
	key     string
	side    draft.Side
	snap    draft.Snapshot
	hasSnap bool
	pending *RoomConfig
	created *RoomCreated
	closed  bool
	// linkOpen is set between handling an open and the matching close.
	// joinEarly marks a join that went out on a link whose open is still
	// queued, so handleOpen does not send it twice.
	linkOpen  bool
	joinEarly bool
	onSnap    listeners[draft.Snapshot]
	onRoom    listeners[RoomCreated]
	onJoined  listeners[types.UserJoinedMessage]
	onErr     listeners[string]
	onView    listeners[View]
}

func New(t Transport, opts ...Option) *Session {
	s := &Session{
		t:     t,
		log:   zap.NewNop(),
		state: StateUnbound,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsub = t.Subscribe(conn.ObserverFuncs{
		Open:    s.handleOpen,
		Message: s.handleMessage,
		Close:   s.handleClose,
	})
	return s
}

// Close detaches the session from its transport. The session goes back to
// unbound and ignores any further frames.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateUnbound
	s.roomID, s.key, s.side = "", "", draft.SideNone
	s.mu.Unlock()
	s.unsub()
}

// CreateRoom sends a create intent. The acknowledgment arrives through
// OnRoomCreated.
func (s *Session) CreateRoom(cfg RoomConfig) bool {
	if err := cfg.Validate(); err != nil {
		s.log.Warn("refusing to create room", zap.Error(err))
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	prev := s.pending
	s.pending = &cfg
	s.mu.Unlock()

	if !s.t.Send(cfg.message()) {
		s.mu.Lock()
		if s.pending == &cfg {
			s.pending = prev
		}
		s.mu.Unlock()
		return false
	}
	s.log.Info("create room sent",
		zap.String("blue", cfg.BlueTeamName),
		zap.String("red", cfg.RedTeamName),
		zap.Int("fearless_bans", len(cfg.FearlessBans)),
	)
	return true
}

// JoinRoom binds the session to roomID. An empty key asks for the spectator
// seat and side must then be SideNone. side is only used for local gating;
// the server decides the real role from the key. The binding is kept even
// when the send fails, so the join goes out on the next successful connect.
func (s *Session) JoinRoom(roomID, key string, side draft.Side) bool {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return false
	}
	if key == "" {
		side = draft.SideNone
	}
	if side != draft.SideNone && !side.Valid() {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.roomID != roomID {
		s.hasSnap = false
		s.snap = draft.Snapshot{}
	}
	s.roomID, s.key, s.side = roomID, key, side
	s.state = StateJoining
	// Sent under the lock so it cannot interleave with handleOpen's re-send.
	sent := s.t.Send(types.NewJoin(roomID, key))
	s.joinEarly = sent && !s.linkOpen
	s.mu.Unlock()

	s.log.Info("joining room", zap.String("room", roomID), zap.String("side", string(side)), zap.Bool("sent", sent))
	return sent
}

// SubmitReady sends a ready intent if the bound side still has to ready up.
func (s *Session) SubmitReady() bool {
	s.mu.Lock()
	ok := s.state == StateJoined && s.hasSnap && draft.IsAwaitingReady(s.snap.Phase, s.side)
	phase := s.snap.Phase
	s.mu.Unlock()
	if !ok {
		s.log.Debug("ready not allowed", zap.String("phase", string(phase)))
		return false
	}
	return s.t.Send(types.NewAction(types.ActionReady, ""))
}

// SubmitAction hovers (champ_select) or locks in (champ_pick) k for the
// current ban or pick turn. Nothing is sent when it is not the bound side's
// turn or k is not available.
func (s *Session) SubmitAction(kind types.ActionKind, k champion.Key) bool {
	switch kind {
	case types.ActionReady:
		return s.SubmitReady()
	case types.ActionChampSelect, types.ActionChampPick:
	default:
		return false
	}

	s.mu.Lock()
	ok := s.state == StateJoined && s.hasSnap
	if ok && kind == types.ActionChampSelect {
		ok = s.snap.CanHover(s.side, k)
	} else if ok {
		ok = s.snap.CanLock(s.side, k)
	}
	phase := s.snap.Phase
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("action", string(kind)),
		zap.String("champion", s.catalog.Name(k)),
		zap.String("phase", string(phase)),
	}
	if !ok {
		s.log.Debug("action not allowed", fields...)
		return false
	}
	if !s.t.Send(types.NewAction(kind, k.String())) {
		return false
	}
	s.log.Info("action sent", fields...)
	return true
}

func (s *Session) Hover(k champion.Key) bool { return s.SubmitAction(types.ActionChampSelect, k) }

func (s *Session) Lock(k champion.Key) bool { return s.SubmitAction(types.ActionChampPick, k) }

// OnSnapshot registers fn for every accepted status frame. Each call gets
// its own copy of the snapshot.
func (s *Session) OnSnapshot(fn func(draft.Snapshot)) func() {
	return s.subscribe(func() func() { return s.onSnap.add(fn) })
}

func (s *Session) OnRoomCreated(fn func(RoomCreated)) func() {
	return s.subscribe(func() func() { return s.onRoom.add(fn) })
}

func (s *Session) OnUserJoined(fn func(types.UserJoinedMessage)) func() {
	return s.subscribe(func() func() { return s.onJoined.add(fn) })
}

func (s *Session) OnServerError(fn func(message string)) func() {
	return s.subscribe(func() func() { return s.onErr.add(fn) })
}

// OnView fires whenever the session or connection state behind View changes.
func (s *Session) OnView(fn func(View)) func() {
	return s.subscribe(func() func() { return s.onView.add(fn) })
}

func (s *Session) subscribe(add func() func()) func() {
	s.mu.Lock()
	remove := add()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		remove()
		s.mu.Unlock()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Side() draft.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.side
}

// Snapshot returns a copy of the latest accepted snapshot.
func (s *Session) Snapshot() (draft.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSnap {
		return draft.Snapshot{}, false
	}
	return s.snap.Clone(), true
}

// Created returns the acknowledgment of the last room this session created.
func (s *Session) Created() (RoomCreated, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created == nil {
		return RoomCreated{}, false
	}
	return *s.created, true
}

func (s *Session) View() View {
	st := s.t.Status()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(st)
}

func (s *Session) viewLocked(st conn.Status) View {
	v := View{
		State:      s.state,
		Connection: st,
		RoomID:     s.roomID,
		Side:       s.side,
	}
	if s.hasSnap {
		snap := s.snap.Clone()
		sum := draft.Summarize(snap, s.side)
		v.Snapshot = &snap
		v.Summary = &sum
	}
	return v
}

// handleOpen re-sends the join for a bound room so the server can
// re-associate this connection before any new status is trusted.
func (s *Session) handleOpen() {
	s.mu.Lock()
	s.linkOpen = true
	early := s.joinEarly
	s.joinEarly = false
	if s.closed || s.roomID == "" || early {
		s.mu.Unlock()
		s.publishView()
		return
	}
	roomID := s.roomID
	s.state = StateJoining
	sent := s.t.Send(types.NewJoin(roomID, s.key))
	s.mu.Unlock()

	if sent {
		s.log.Info("re-sent join after connect", zap.String("room", roomID))
	} else {
		s.log.Warn("could not re-send join", zap.String("room", roomID))
	}
	s.publishView()
}

func (s *Session) handleClose(info conn.CloseInfo) {
	s.mu.Lock()
	s.linkOpen = false
	s.joinEarly = false
	if s.state == StateJoined {
		s.state = StateJoining
	}
	s.mu.Unlock()
	s.publishView()
}

func (s *Session) handleMessage(data []byte) {
	msg, err := types.Decode(data)
	if err != nil {
		s.log.Warn("discarding inbound frame", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}

	switch m := msg.(type) {
	case types.StatusMessage:
		s.handleStatus(m)
	case types.CreateResponseMessage:
		s.handleCreated(m)
	case types.UserJoinedMessage:
		s.log.Info("user joined", zap.String("team", m.Team), zap.String("message", m.Message))
		s.mu.Lock()
		fns := s.onJoined.list()
		s.mu.Unlock()
		for _, fn := range fns {
			fn(m)
		}
	case types.ResultMessage:
		if m.Type == types.TypeSuccess {
			s.log.Info("server ok", zap.String("message", m.Message))
			return
		}
		s.log.Warn("server error", zap.String("message", m.Message))
		s.mu.Lock()
		fns := s.onErr.list()
		s.mu.Unlock()
		for _, fn := range fns {
			fn(m.Message)
		}
	}
}

func (s *Session) handleStatus(m types.StatusMessage) {
	snap, err := snapshotFromStatus(m)
	if err != nil {
		s.log.Warn("discarding status", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed || s.state == StateUnbound {
		s.mu.Unlock()
		s.log.Debug("status while unbound", zap.String("phase", m.CurrentPhase))
		return
	}
	if s.state == StateJoining {
		s.log.Info("joined room", zap.String("room", s.roomID), zap.String("phase", m.CurrentPhase))
	}
	s.state = StateJoined
	s.snap = snap
	s.hasSnap = true
	fns := s.onSnap.list()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
	s.publishView()
}

func (s *Session) handleCreated(m types.CreateResponseMessage) {
	s.mu.Lock()
	rc := RoomCreated{RoomID: m.RoomID, BlueKey: m.BlueTeamKey, RedKey: m.RedTeamKey}
	if s.pending != nil {
		rc.Fearless = s.pending.Fearless || len(s.pending.FearlessBans) > 0
		s.pending = nil
	}
	s.created = &rc
	fns := s.onRoom.list()
	s.mu.Unlock()

	s.log.Info("room created", zap.String("room", rc.RoomID))
	for _, fn := range fns {
		fn(rc)
	}
	s.publishView()
}

func (s *Session) publishView() {
	st := s.t.Status()
	s.mu.Lock()
	fns := s.onView.list()
	if len(fns) == 0 {
		s.mu.Unlock()
		return
	}
	v := s.viewLocked(st)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
