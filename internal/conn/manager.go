package conn

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("connection manager closed")

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

type Status struct {
	State            State `json:"state"`
	ReconnectAttempt int   `json:"reconnect_attempt"`
	// Exhausted is set once the retry ceiling is hit; only a manual Connect
	// clears it.
	Exhausted bool `json:"exhausted"`
}

const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	defaultDialTimeout          = 10 * time.Second
	defaultWriteTimeout         = 3 * time.Second
	outboxSize                  = 64
)

type Option func(*Manager)

func WithReconnectInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

func WithMaxReconnectAttempts(n int) Option {
	return func(m *Manager) { m.maxAttempts = n }
}

func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) { m.writeTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// link is the manager's private state for one established Link.
type link struct {
	conn   Link
	outbox chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// Manager owns at most one live connection to the room server and reconnects
// at a fixed interval after unexpected drops.
type Manager struct {
	url          string
	dial         Dialer
	interval     time.Duration
	maxAttempts  int
	dialTimeout  time.Duration
	writeTimeout time.Duration
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events *eventQueue
	stop   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	attempts  int
	exhausted bool
	manual    bool
	closed    bool
	gen       uint64 // bumped by every dial start and Disconnect; stale dials and timers compare against it
	link      *link
	timer     *time.Timer
	observers []observerEntry
	nextObsID int
}

type observerEntry struct {
	id  int
	obs Observer
}

func New(url string, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		url:          url,
		dial:         WebsocketDialer,
		interval:     DefaultReconnectInterval,
		maxAttempts:  DefaultMaxReconnectAttempts,
		dialTimeout:  defaultDialTimeout,
		writeTimeout: defaultWriteTimeout,
		log:          zap.NewNop(),
		ctx:          ctx,
		cancel:       cancel,
		events:       newEventQueue(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		state:        StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(zap.String("url", url))

	go m.dispatch()
	return m
}

// Subscribe registers o and returns a function that removes it.
func (m *Manager) Subscribe(o Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextObsID++
	id := m.nextObsID
	m.observers = append(m.observers, observerEntry{id: id, obs: o})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.observers {
			if e.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, ReconnectAttempt: m.attempts, Exhausted: m.exhausted}
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// Connect starts connecting unless a connection is already up or in flight.
// It never blocks; the outcome arrives as an open or error event.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.state == StateConnecting || m.state == StateConnected {
		return
	}
	m.manual = false
	m.exhausted = false
	m.attempts = 0
	m.stopTimerLocked()
	m.startDialLocked()
}

// Disconnect closes the connection on purpose: pending reconnects are
// cancelled and no new ones are scheduled.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	lk := m.disconnectLocked()
	if lk != nil {
		m.wg.Add(1)
	}
	m.mu.Unlock()

	if lk != nil {
		go func() {
			defer m.wg.Done()
			m.closeLink(lk, "client disconnect")
		}()
	}
}

func (m *Manager) disconnectLocked() *link {
	m.manual = true
	m.gen++
	m.stopTimerLocked()

	lk := m.link
	m.link = nil
	m.state = StateDisconnected
	if lk != nil {
		m.events.push(event{kind: evClose, close: CloseInfo{Code: websocket.StatusNormalClosure, Manual: true}})
		m.log.Info("disconnected by client")
	}
	return lk
}

// Close disconnects, stops the dispatcher and waits for every goroutine the
// manager started. Do not call it from an observer.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	lk := m.disconnectLocked()
	m.closed = true
	m.mu.Unlock()

	var err error
	if lk != nil {
		err = m.closeLink(lk, "client shutdown")
	}
	m.cancel()
	m.wg.Wait()

	close(m.stop)
	<-m.done
	return err
}

// Send marshals v (raw []byte and string go out verbatim) and queues it for
// the writer. It reports false, without blocking, when there is no open
// connection or the outbox is full.
func (m *Manager) Send(v any) bool {
	var payload []byte
	switch p := v.(type) {
	case []byte:
		payload = p
	case string:
		payload = []byte(p)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			m.log.Error("encode outbound frame", zap.Error(err))
			return false
		}
		payload = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.link == nil {
		m.log.Debug("send while not connected", zap.String("state", string(m.state)))
		return false
	}
	select {
	case m.link.outbox <- payload:
		return true
	default:
		m.log.Warn("outbox full, dropping frame")
		return false
	}
}

func (m *Manager) startDialLocked() {
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.timer = nil

	m.wg.Add(1)
	go m.connectOnce(gen)
}

func (m *Manager) connectOnce(gen uint64) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.ctx, m.dialTimeout)
	conn, err := m.dial(ctx, m.url)
	cancel()

	m.mu.Lock()
	if gen != m.gen || m.manual || m.closed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close("superseded")
		}
		return
	}

	if err != nil {
		m.state = StateError
		m.log.Warn("connect failed", zap.Error(err), zap.Int("attempt", m.attempts))
		m.events.push(event{kind: evError, err: err})
		m.events.push(event{kind: evClose, close: CloseInfo{Code: websocket.CloseStatus(err), Err: err}})
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	lctx, lcancel := context.WithCancel(m.ctx)
	lk := &link{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		ctx:    lctx,
		cancel: lcancel,
	}
	m.link = lk
	m.state = StateConnected
	m.attempts = 0
	m.exhausted = false
	m.events.push(event{kind: evOpen})
	m.log.Info("connected")

	m.wg.Add(2)
	go m.readLoop(lk)
	go m.writeLoop(lk)
	m.mu.Unlock()
}

func (m *Manager) readLoop(lk *link) {
	defer m.wg.Done()
	for {
		data, err := lk.conn.Read(lk.ctx)
		if err != nil {
			m.linkDown(lk, err)
			return
		}

		m.mu.Lock()
		if m.link != lk {
			m.mu.Unlock()
			return
		}
		m.events.push(event{kind: evMessage, data: data})
		m.mu.Unlock()
	}
}

func (m *Manager) writeLoop(lk *link) {
	defer m.wg.Done()
	for {
		select {
		case <-lk.ctx.Done():
			return
		case payload := <-lk.outbox:
			ctx, cancel := context.WithTimeout(lk.ctx, m.writeTimeout)
			err := lk.conn.Write(ctx, payload)
			cancel()
			if err != nil {
				m.log.Warn("write failed, dropping connection", zap.Error(err))
				// The read loop sees the close and runs the reconnect policy.
				_ = lk.conn.Close("write failed")
				return
			}
		}
	}
}

// linkDown handles a connection the client did not close.
func (m *Manager) linkDown(lk *link, err error) {
	m.mu.Lock()
	if m.link != lk {
		m.mu.Unlock()
		return
	}
	m.link = nil
	m.state = StateDisconnected
	code := websocket.CloseStatus(err)
	m.log.Warn("connection lost", zap.Error(err), zap.Int("code", int(code)))
	m.events.push(event{kind: evClose, close: CloseInfo{Code: code, Err: err}})
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	lk.cancel()
	_ = lk.conn.Close("")
}

func (m *Manager) scheduleReconnectLocked() {
	if m.manual || m.closed {
		return
	}
	if m.attempts >= m.maxAttempts {
		m.exhausted = true
		m.log.Error("reconnect attempts exhausted", zap.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	gen := m.gen
	m.log.Info("scheduling reconnect",
		zap.Int("attempt", m.attempts),
		zap.Duration("in", m.interval),
	)
	m.timer = time.AfterFunc(m.interval, func() { m.reconnect(gen) })
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.manual || m.closed {
		return
	}
	m.startDialLocked()
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) closeLink(lk *link, reason string) error {
	err := lk.conn.Close(reason)
	lk.cancel()
	var ce websocket.CloseError
	if err != nil && (errors.As(err, &ce) || errors.Is(err, net.ErrClosed)) {
		return nil
	}
	return err
}

func (m *Manager) dispatch() {
	defer close(m.done)
	for {
		select {
		case <-m.events.ready:
			m.flush()
		case <-m.stop:
			m.flush()
			return
		}
	}
}

func (m *Manager) flush() {
	for _, ev := range m.events.drain() {
		m.mu.Lock()
		obs := make([]Observer, len(m.observers))
		for i, e := range m.observers {
			obs[i] = e.obs
		}
		m.mu.Unlock()

		for _, o := range obs {
			ev.deliver(o)
		}
	}
}
