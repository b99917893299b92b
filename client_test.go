package graphqlwsclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obmarg/graphql-ws-client/internal/actor"
)

func newTestClient(bufSize int) (*Client, chan actor.Command, chan uint64) {
	commands := make(chan actor.Command, 8)
	cancels := make(chan uint64, 8)
	client := &Client{
		commands: commands,
		cancels:  cancels,
		nextID:   new(uint64),
		bufSize:  bufSize,
		log:      defaultLogger(),
	}
	return client, commands, cancels
}

func TestClient_SubscribeAllocatesSequentialIDs(t *testing.T) {
	client, commands, _ := newTestClient(4)

	sub1, err := Subscribe[map[string]interface{}](context.Background(), client, RawOperationAsMap{RawOperation{Query: "subscription { a }"}})
	require.NoError(t, err)
	sub2, err := Subscribe[map[string]interface{}](context.Background(), client, RawOperationAsMap{RawOperation{Query: "subscription { b }"}})
	require.NoError(t, err)

	require.Equal(t, "1", sub1.ID().String())
	require.Equal(t, "2", sub2.ID().String())

	<-commands
	<-commands
}

func TestClient_SubscribeRespectsContextCancellation(t *testing.T) {
	client, commands, _ := newTestClient(4)
	_ = commands // intentionally never drained, so the buffered channel fills

	for i := 0; i < cap(commands); i++ {
		commands <- actor.PingCommand()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Subscribe[map[string]interface{}](ctx, client, RawOperationAsMap{RawOperation{Query: "subscription { a }"}})
	require.Error(t, err)
}

func TestClient_StopIsNonBlockingWhenCancelLaneIsFull(t *testing.T) {
	client, _, cancels := newTestClient(4)
	for i := 0; i < cap(cancels); i++ {
		cancels <- uint64(i + 100)
	}

	done := make(chan struct{})
	go func() {
		client.Stop(newSubscriptionID(1))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked despite the documented best-effort, non-blocking contract")
	}
}

func TestClient_CloseIsNonBlockingWhenCommandsIsFull(t *testing.T) {
	client, commands, _ := newTestClient(4)
	for i := 0; i < cap(commands); i++ {
		commands <- actor.PingCommand()
	}

	done := make(chan struct{})
	go func() {
		client.Close(1000, "bye")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked despite the documented best-effort, non-blocking contract")
	}
}

// RawOperationAsMap has a plain map as its response type, letting these
// tests avoid a dependency on jsonmap.Ordered. Its Decode ignores the
// payload and returns a nil map, since these tests never deliver one.
type RawOperationAsMap struct {
	RawOperation
}

func (o RawOperationAsMap) Decode(raw json.RawMessage) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, nil
}
