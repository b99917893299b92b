package graphqlwsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obmarg/graphql-ws-client/transport"
)

// fakeConn is a scripted transport.Connection standing in for a real
// websocket, shared by the builder/client/subscription tests in this
// package.
type fakeConn struct {
	incoming chan transport.Message
	outgoing chan transport.Message
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan transport.Message, 16),
		outgoing: make(chan transport.Message, 16),
	}
}

func (f *fakeConn) Receive() (transport.Message, bool) {
	msg, ok := <-f.incoming
	return msg, ok
}

func (f *fakeConn) Send(m transport.Message) error {
	f.outgoing <- m
	return nil
}

func (f *fakeConn) sendText(text string) { f.incoming <- transport.TextMessage(text) }

func (f *fakeConn) expectText(t *testing.T, contains string) transport.Message {
	t.Helper()
	select {
	case msg := <-f.outgoing:
		require.Equal(t, transport.Text, msg.Kind)
		require.Contains(t, msg.Text, contains)
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for outgoing message containing %q", contains)
		return transport.Message{}
	}
}

func (f *fakeConn) expectClose(t *testing.T, code uint16) transport.Message {
	t.Helper()
	select {
	case msg := <-f.outgoing:
		require.Equal(t, transport.Close, msg.Kind)
		require.Equal(t, code, msg.CloseCode)
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for close with code %d", code)
		return transport.Message{}
	}
}

// ackHandshake performs the minimal connection_init/connection_ack exchange
// so tests can get straight to a live Client/ConnectionActor pair.
func ackHandshake(t *testing.T, conn *fakeConn) {
	t.Helper()
	conn.expectText(t, `"connection_init"`)
	conn.sendText(`{"type":"connection_ack"}`)
}
