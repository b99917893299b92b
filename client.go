package graphqlwsclient

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/obmarg/graphql-ws-client/internal/actor"
	"github.com/obmarg/graphql-ws-client/internal/protocol"
	"github.com/obmarg/graphql-ws-client/transport"
)

// Client is a cheap, copyable handle onto a running connection actor. All
// copies of a Client share the same command channel and the same id
// allocator, so subscriptions started from any copy are uniquely numbered
// against the whole connection.
type Client struct {
	commands chan<- actor.Command
	cancels  chan<- uint64
	nextID   *uint64
	bufSize  int
	log      zerolog.Logger
}

// Subscribe starts a new subscription for op. It blocks until the
// connection actor accepts the command or ctx is done; pass a context with
// a deadline if the actor might be gone and you don't want to wait
// indefinitely.
//
// Subscribe is a free function, not a method, because Go does not allow a
// method to introduce type parameters beyond its receiver's.
func Subscribe[R any](ctx context.Context, c *Client, op Operation[R]) (*Subscription[R], error) {
	rawID := atomic.AddUint64(c.nextID, 1)
	id := newSubscriptionID(rawID)

	payload, err := op.Payload()
	if err != nil {
		return nil, err
	}
	text, err := protocol.EncodeSubscribe(id.String(), payload)
	if err != nil {
		return nil, err
	}

	delivery := make(chan json.RawMessage, c.bufSize)
	cmd := actor.SubscribeCommand(rawID, text, delivery)

	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return nil, transport.NewSendError("timed out enqueuing subscribe command: " + ctx.Err().Error())
	}

	c.log.Debug().Uint64("id", rawID).Msg("client: subscribed")
	return newSubscription[R](id, rawID, delivery, c.cancels, op), nil
}

// Stop ends the subscription with the given id, as an alternative to
// holding onto the Subscription value. Best-effort: if the connection has
// already shut down this is a silent no-op.
func (c *Client) Stop(id SubscriptionID) {
	c.stopRaw(id.value)
}

func (c *Client) stopRaw(rawID uint64) {
	select {
	case c.cancels <- rawID:
	default:
	}
}

// Close asks the connection actor to close the transport with the given
// close code and reason, ending every live subscription. Best-effort: if
// the actor is already gone this is a silent no-op.
func (c *Client) Close(code uint16, reason string) {
	select {
	case c.commands <- actor.CloseCommand(code, reason):
	default:
	}
}
