// Package gorillatransport adapts a *gorilla/websocket.Conn to this
// module's transport.Connection capability.
package gorillatransport

import (
	"context"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/obmarg/graphql-ws-client/transport"
)

// Subprotocol is the WebSocket subprotocol this module speaks.
const Subprotocol = "graphql-transport-ws"

var defaultDialer = gorilla.Dialer{
	Subprotocols:     []string{Subprotocol},
	HandshakeTimeout: 10 * time.Second,
}

// Dial opens a websocket to url with the graphql-transport-ws subprotocol
// negotiated and wraps the result as a transport.Connection.
func Dial(ctx context.Context, url string, header http.Header) (*Connection, *http.Response, error) {
	conn, resp, err := defaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}
	return New(conn), resp, nil
}

// Connection wraps a gorilla websocket connection. gorilla's ReadMessage
// intercepts control frames (ping/pong/close) internally and never returns
// them as a message; New installs handlers for all three so they surface
// on Receive just like a Text frame would, in the order they arrive on the
// wire, leaving the decision of how to respond to them (e.g. replying to a
// ping) to the caller instead of gorilla's built-in auto-reply.
type Connection struct {
	conn *gorilla.Conn
	msgs chan transport.Message
	done chan struct{}
}

// New wraps an already-established gorilla websocket connection.
func New(conn *gorilla.Conn) *Connection {
	c := &Connection{conn: conn, msgs: make(chan transport.Message, 1), done: make(chan struct{})}

	conn.SetPingHandler(func(string) error {
		c.offer(transport.PingMessage())
		return nil
	})
	conn.SetPongHandler(func(string) error {
		c.offer(transport.PongMessage())
		return nil
	})
	conn.SetCloseHandler(func(code int, text string) error {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(gorilla.CloseMessage, gorilla.FormatCloseMessage(code, text), deadline)
		c.offer(transport.CloseMessage(uint16(code), text))
		return nil
	})

	go c.pump()
	return c
}

func (c *Connection) offer(m transport.Message) {
	select {
	case c.msgs <- m:
	case <-c.done:
	}
}

// pump is the only goroutine that ever calls conn.ReadMessage; control
// frame handlers fire synchronously inside that call, so everything this
// adapter pushes onto msgs preserves wire order.
func (c *Connection) pump() {
	defer close(c.msgs)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		switch kind {
		case gorilla.TextMessage:
			c.offer(transport.TextMessage(string(data)))
		case gorilla.BinaryMessage:
			// dropped silently: the subprotocol is text-only.
		}
	}
}

// Receive implements transport.Connection.
func (c *Connection) Receive() (transport.Message, bool) {
	msg, ok := <-c.msgs
	return msg, ok
}

// Send implements transport.Connection.
func (c *Connection) Send(m transport.Message) error {
	switch m.Kind {
	case transport.Text:
		return c.conn.WriteMessage(gorilla.TextMessage, []byte(m.Text))
	case transport.Close:
		code := gorilla.CloseNormalClosure
		if m.HasCode {
			code = int(m.CloseCode)
		}
		deadline := time.Now().Add(time.Second)
		return c.conn.WriteControl(gorilla.CloseMessage, gorilla.FormatCloseMessage(code, m.CloseReason), deadline)
	case transport.Ping:
		return c.conn.WriteMessage(gorilla.PingMessage, nil)
	case transport.Pong:
		return c.conn.WriteMessage(gorilla.PongMessage, nil)
	default:
		return nil
	}
}

// Close closes the underlying network connection without sending a close
// frame; used when the actor has already best-effort sent one via Send.
func (c *Connection) Close() error {
	close(c.done)
	return c.conn.Close()
}
