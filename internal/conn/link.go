package conn

import (
	"context"

	"github.com/coder/websocket"
)

// Link is one established connection to the room server.
type Link interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
}

// Dialer opens a Link to url.
type Dialer func(ctx context.Context, url string) (Link, error)

const readLimit = 1 << 20

// WebsocketDialer is the production Dialer.
func WebsocketDialer(ctx context.Context, url string) (Link, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(readLimit)
	return &wsLink{c: c}, nil
}

type wsLink struct {
	c *websocket.Conn
}

func (l *wsLink) Read(ctx context.Context) ([]byte, error) {
	_, data, err := l.c.Read(ctx)
	return data, err
}

func (l *wsLink) Write(ctx context.Context, data []byte) error {
	return l.c.Write(ctx, websocket.MessageText, data)
}

func (l *wsLink) Close(reason string) error {
	return l.c.Close(websocket.StatusNormalClosure, reason)
}
