// Package coderws adapts a *coder/websocket.Conn to this module's
// transport.Connection capability. It is a second, independent transport
// adapter (alongside transport/gorilla) demonstrating that the engine in
// this module is not tied to one underlying websocket library.
package coderws

import (
	"context"
	"time"

	"github.com/coder/websocket"

	"github.com/obmarg/graphql-ws-client/transport"
)

// Subprotocol is the WebSocket subprotocol this module speaks.
const Subprotocol = "graphql-transport-ws"

// Dial opens a websocket to url with the graphql-transport-ws subprotocol
// negotiated and wraps the result as a transport.Connection.
func Dial(ctx context.Context, url string) (*Connection, *websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, nil, err
	}
	return New(conn), conn, nil
}

// Connection wraps a coder/websocket connection.
//
// Unlike gorilla/websocket, coder/websocket does not expose a hook for
// observing incoming ping/pong control frames: it answers pings
// transparently inside Read and never surfaces them. Receive on this
// adapter therefore only ever yields Text and Close messages; the
// connection actor's reply-with-pong behavior for an observed Ping simply
// never triggers over this adapter, which is harmless since the library
// already answered it at the protocol level.
type Connection struct {
	conn *websocket.Conn
}

// New wraps an already-established coder/websocket connection.
func New(conn *websocket.Conn) *Connection {
	conn.SetReadLimit(32 << 20)
	return &Connection{conn: conn}
}

// Receive implements transport.Connection.
func (c *Connection) Receive() (transport.Message, bool) {
	for {
		kind, data, err := c.conn.Read(context.Background())
		if err != nil {
			code := websocket.CloseStatus(err)
			if code != -1 {
				return transport.CloseMessage(uint16(code), err.Error()), true
			}
			return transport.Message{}, false
		}
		switch kind {
		case websocket.MessageText:
			return transport.TextMessage(string(data)), true
		case websocket.MessageBinary:
			continue // dropped silently: the subprotocol is text-only.
		}
	}
}

// Send implements transport.Connection.
func (c *Connection) Send(m transport.Message) error {
	ctx := context.Background()
	switch m.Kind {
	case transport.Text:
		return c.conn.Write(ctx, websocket.MessageText, []byte(m.Text))
	case transport.Close:
		code := websocket.StatusNormalClosure
		if m.HasCode {
			code = websocket.StatusCode(m.CloseCode)
		}
		return c.conn.Close(code, m.CloseReason)
	case transport.Ping:
		deadline, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return c.conn.Ping(deadline)
	case transport.Pong:
		return nil // answered transparently by the library already.
	default:
		return nil
	}
}
