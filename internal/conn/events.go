package conn

import (
	"sync"

	"github.com/coder/websocket"
)

// Observer receives connection events. All callbacks run on the manager's
// single dispatch goroutine, in the order the transitions happened. Callbacks
// may call Send, Connect and Disconnect but must not call Close.
type Observer interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose(info CloseInfo)
	OnError(err error)
}

type CloseInfo struct {
	Code   websocket.StatusCode
	Manual bool
	Err    error
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Open    func()
	Message func(data []byte)
	Close   func(info CloseInfo)
	Error   func(err error)
}

func (f ObserverFuncs) OnOpen() {
	if f.Open != nil {
		f.Open()
	}
}

func (f ObserverFuncs) OnMessage(data []byte) {
	if f.Message != nil {
		f.Message(data)
	}
}

func (f ObserverFuncs) OnClose(info CloseInfo) {
	if f.Close != nil {
		f.Close(info)
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

type eventKind int

const (
	evOpen eventKind = iota
	evMessage
	evClose
	evError
)

type event struct {
	kind  eventKind
	data  []byte
	close CloseInfo
	err   error
}

func (e event) deliver(o Observer) {
	switch e.kind {
	case evOpen:
		o.OnOpen()
	case evMessage:
		o.OnMessage(e.data)
	case evClose:
		o.OnClose(e.close)
	case evError:
		o.OnError(e.err)
	}
}

// eventQueue is unbounded so producers never block, including producers
// running inside an observer callback.
type eventQueue struct {
	mu    sync.Mutex
	items []event
	ready chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
