package graphqlwsclient

import (
	"context"
	"fmt"

	"github.com/obmarg/graphql-ws-client/internal/actor"
	"github.com/obmarg/graphql-ws-client/internal/protocol"
	"github.com/obmarg/graphql-ws-client/transport"
)

// ConnectionActor is the handle returned by Builder.Build for the
// connection's single background task. Exactly one goroutine must call Run
// on it, typically right after Build returns:
//
//	client, conn, err := builder.Build()
//	go conn.Run(ctx)
type ConnectionActor struct {
	inner *actor.Actor
}

// Run drives the connection until the transport ends, ctx is done, or the
// connection is explicitly closed. See internal/actor for the full state
// machine; this is a thin, intentionally narrow facade so callers outside
// this module never need to import the internal package to hold the value.
func (a *ConnectionActor) Run(ctx context.Context) error {
	return a.inner.Run(ctx)
}

// Builder performs the graphql-transport-ws handshake and produces a
// Client/ConnectionActor pair.
type Builder struct {
	conn transport.Connection
	cfg  config
}

// NewBuilder starts configuring a connection over conn. conn is not used
// until Build is called.
func NewBuilder(conn transport.Connection, opts ...Option) *Builder {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()
	return &Builder{conn: conn, cfg: cfg}
}

// Build performs the connection_init/connection_ack handshake over the
// Builder's Connection and, on success, returns a Client and the
// ConnectionActor that must be run (via a goroutine calling Run) for the
// Client to do anything useful.
func (b *Builder) Build() (*Client, *ConnectionActor, error) {
	log := newConnectionLogger(b.cfg.logger)

	text, err := protocol.EncodeConnectionInit(b.cfg.initPayload)
	if err != nil {
		return nil, nil, err
	}
	if err := b.conn.Send(transport.TextMessage(text)); err != nil {
		return nil, nil, transport.NewSendError(err.Error())
	}
	log.Debug().Msg("builder: sent connection_init")

handshake:
	for {
		msg, ok := b.conn.Receive()
		if !ok {
			return nil, nil, transport.NewUnknownError("connection dropped before ack")
		}

		switch msg.Kind {
		case transport.Close:
			return nil, nil, transport.NewCloseError(msg.CloseCode, msg.CloseReason)

		case transport.Ping, transport.Pong:
			continue handshake

		case transport.Text:
			ev, err := protocol.DecodeEvent(msg.Text)
			if err != nil {
				_ = b.conn.Send(transport.CloseMessage(protocol.CloseUnexpectedHandshake, "malformed handshake message"))
				return nil, nil, err
			}

			switch ev.Type {
			case protocol.EventPing:
				if err := b.conn.Send(transport.TextMessage(protocol.EncodePong())); err != nil {
					return nil, nil, transport.NewSendError(err.Error())
				}
				continue handshake
			case protocol.EventPong:
				continue handshake
			case protocol.EventConnectionAck:
				log.Debug().Msg("builder: handshake complete")
				break handshake
			default:
				reason := fmt.Sprintf("expected connection_ack or ping, got %s", ev.Type)
				_ = b.conn.Send(transport.CloseMessage(protocol.CloseUnexpectedHandshake, reason))
				return nil, nil, transport.NewDecodeError(reason)
			}

		default:
			continue handshake
		}
	}

	commands := make(chan actor.Command, b.cfg.commandBufferSize)
	cancels := make(chan uint64, b.cfg.cancelBufferSize)

	act := actor.New(b.conn, commands, cancels, b.cfg.keepAliveInterval, b.cfg.keepAliveRetries, log)

	nextID := new(uint64)
	client := &Client{
		commands: commands,
		cancels:  cancels,
		nextID:   nextID,
		bufSize:  b.cfg.subscriptionBufferSize,
		log:      log,
	}

	return client, &ConnectionActor{inner: act}, nil
}

// BuildAndSubscribe is the one-shot convenience: it performs the handshake,
// spawns the connection actor on ctx, starts a single subscription for op,
// and returns its Subscription. Cancelling ctx ends both the subscription's
// Next calls and the actor's loop, which is this package's replacement for
// the stream-join combinator other implementations use to fuse a driving
// task into the stream it powers — Go's goroutines are scheduled
// independently of the consumer, so no polling combinator is needed, only
// a shared cancellation signal.
func BuildAndSubscribe[R any](ctx context.Context, conn transport.Connection, op Operation[R], opts ...Option) (*Subscription[R], error) {
	client, connActor, err := NewBuilder(conn, opts...).Build()
	if err != nil {
		return nil, err
	}

	go connActor.Run(ctx)

	return Subscribe[R](ctx, client, op)
}
