// Package relay fans session views out to overlay subscribers. A single
// goroutine owns all state; everything else talks to it through the inbox.
package relay

import (
	"context"

	"github.com/DoyleJ11/lol-draft-client/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Msg interface{ isRelayMsg() }

type Publish struct {
	View session.View
}

func (Publish) isRelayMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Frame // where this client wants to receive frames
}

func (Join) isRelayMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRelayMsg() {}

type Shutdown struct{}

func (Shutdown) isRelayMsg() {}

type GetState struct {
	Reply chan State
}

func (GetState) isRelayMsg() {}

// Frame is one view as sent to subscribers. Version increases by one per
// published view.
type Frame struct {
	Version int          `json:"version"`
	View    session.View `json:"view"`
}

type State struct {
	Version    int
	NumClients int
	// View is nil until the first Publish.
	View *session.View
}

type Relay struct {
	inbox   chan Msg
	view    *session.View
	version int
	clients map[string]chan Frame
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Relay {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	r := &Relay{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Frame),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// NewClientID returns a fresh subscriber id.
func NewClientID() string { return uuid.NewString() }

func (r *Relay) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				if r.view != nil {
					// Replay the latest view so a new overlay renders at once.
					select {
					case msg.Outbox <- Frame{Version: r.version, View: *r.view}:
					default:
					}
				}
				r.log.Debug("subscriber joined", zap.String("client", msg.ClientID), zap.Int("clients", len(r.clients)))

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}

			case Publish:
				v := msg.View
				r.view = &v
				r.version++
				r.broadcast(Frame{Version: r.version, View: v})

			case GetState:
				st := State{Version: r.version, NumClients: len(r.clients)}
				if r.view != nil {
					v := *r.view
					st.View = &v
				}
				msg.Reply <- st

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Relay) shutdown() {
	for id, ch := range r.clients {
		close(ch) // no more frames
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Relay) broadcast(f Frame) {
	for id, ch := range r.clients {
		select {
		case ch <- f:
		default:
			// Slow subscriber, drop it.
			r.log.Warn("dropping slow subscriber", zap.String("client", id))
			close(ch)
			delete(r.clients, id)
		}
	}
}

// Done is closed once the relay has stopped.
func (r *Relay) Done() <-chan struct{} { return r.ctx.Done() }

// send delivers m unless the relay has stopped.
func (r *Relay) send(m Msg) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Relay) Publish(v session.View) { r.send(Publish{View: v}) }

// Subscribe registers out under a new id and returns the id. out is closed
// when the client leaves, is dropped, or the relay stops.
func (r *Relay) Subscribe(out chan Frame) (string, bool) {
	id := NewClientID()
	return id, r.send(Join{ClientID: id, Outbox: out})
}

func (r *Relay) Unsubscribe(id string) { r.send(Leave{ClientID: id}) }

// State asks the loop for its current state.
func (r *Relay) State(ctx context.Context) (State, error) {
	if r.ctx.Err() != nil {
		return State{}, context.Canceled
	}
	reply := make(chan State, 1)
	select {
	case r.inbox <- GetState{Reply: reply}:
	case <-r.ctx.Done():
		return State{}, context.Canceled
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-r.ctx.Done():
		return State{}, context.Canceled
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (r *Relay) Shutdown() { r.send(Shutdown{}) }
