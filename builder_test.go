package graphqlwsclient

import (
	"context"
	"testing"
	"time"

	"github.com/dolmen-go/jsonmap"
	"github.com/stretchr/testify/require"

	"github.com/obmarg/graphql-ws-client/internal/protocol"
	"github.com/obmarg/graphql-ws-client/transport"
)

type buildResult struct {
	client *Client
	actor  *ConnectionActor
	err    error
}

func buildInBackground(conn transport.Connection, opts ...Option) chan buildResult {
	out := make(chan buildResult, 1)
	go func() {
		client, act, err := NewBuilder(conn, opts...).Build()
		out <- buildResult{client: client, actor: act, err: err}
	}()
	return out
}

func TestBuilder_SendsConnectionInitAndCompletesOnAck(t *testing.T) {
	conn := newFakeConn()
	results := buildInBackground(conn)

	ackHandshake(t, conn)

	select {
	case r := <-results:
		require.NoError(t, r.err)
		require.NotNil(t, r.client)
		require.NotNil(t, r.actor)
	case <-time.After(time.Second):
		t.Fatal("Build did not return")
	}
}

func TestBuilder_IncludesInitPayload(t *testing.T) {
	conn := newFakeConn()
	results := buildInBackground(conn, WithInitPayload(map[string]string{"Authorization": "Bearer xyz"}))

	msg := conn.expectText(t, `"connection_init"`)
	require.Contains(t, msg.Text, "Bearer xyz")
	conn.sendText(`{"type":"connection_ack"}`)

	select {
	case r := <-results:
		require.NoError(t, r.err)
	case <-time.After(time.Second):
		t.Fatal("Build did not return")
	}
}

func TestBuilder_PingDuringHandshakeIsAnsweredAndIgnored(t *testing.T) {
	conn := newFakeConn()
	results := buildInBackground(conn)

	conn.expectText(t, `"connection_init"`)
	conn.sendText(`{"type":"ping"}`)
	conn.expectText(t, `"pong"`)
	conn.sendText(`{"type":"connection_ack"}`)

	select {
	case r := <-results:
		require.NoError(t, r.err)
	case <-time.After(time.Second):
		t.Fatal("Build did not return")
	}
}

func TestBuilder_UnexpectedEventDuringHandshakeFails(t *testing.T) {
	conn := newFakeConn()
	results := buildInBackground(conn)

	conn.expectText(t, `"connection_init"`)
	conn.sendText(`{"type":"next","id":"1","payload":{}}`)
	conn.expectClose(t, protocol.CloseUnexpectedHandshake)

	select {
	case r := <-results:
		require.Error(t, r.err)
	case <-time.After(time.Second):
		t.Fatal("Build did not return")
	}
}

func TestBuilder_CloseDuringHandshakeFails(t *testing.T) {
	conn := newFakeConn()
	results := buildInBackground(conn)

	conn.expectText(t, `"connection_init"`)
	conn.incoming <- transport.CloseMessage(4401, "unauthorized")

	select {
	case r := <-results:
		require.Error(t, r.err)
		var tErr *transport.Error
		require.ErrorAs(t, r.err, &tErr)
		code, reason, ok := tErr.AsClose()
		require.True(t, ok)
		require.Equal(t, uint16(4401), code)
		require.Equal(t, "unauthorized", reason)
	case <-time.After(time.Second):
		t.Fatal("Build did not return")
	}
}

func TestBuildAndSubscribe_EndToEnd(t *testing.T) {
	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := RawOperation{Query: `subscription { messagePosted { id text } }`}

	type subResult struct {
		sub *Subscription[jsonmap.Ordered]
		err error
	}
	results := make(chan subResult, 1)
	go func() {
		sub, err := BuildAndSubscribe[jsonmap.Ordered](ctx, conn, op)
		results <- subResult{sub: sub, err: err}
	}()

	ackHandshake(t, conn)
	conn.expectText(t, `"subscribe"`)
	conn.sendText(`{"type":"next","id":"1","payload":{"data":{"x":1}}}`)

	var sub *Subscription[jsonmap.Ordered]
	select {
	case r := <-results:
		require.NoError(t, r.err)
		sub = r.sub
	case <-time.After(time.Second):
		t.Fatal("BuildAndSubscribe did not return")
	}

	value, err := sub.Next(ctx)
	require.NoError(t, err)
	_, ok := value.Data["data"]
	require.True(t, ok)

	sub.Stop()
	conn.expectText(t, `"complete"`)
}
