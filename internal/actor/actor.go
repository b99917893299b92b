// Package actor implements the connection actor: the single goroutine that
// owns a transport.Connection for the lifetime of a graphql-transport-ws
// session, multiplexing subscribe/cancel/close commands from Client against
// events arriving from the server, and driving the keep-alive scheduler.
//
// A connection actor is built after the handshake (connection_init /
// connection_ack) has already completed; Run only ever sees post-handshake
// traffic.
package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/obmarg/graphql-ws-client/internal/keepalive"
	"github.com/obmarg/graphql-ws-client/internal/protocol"
	"github.com/obmarg/graphql-ws-client/transport"
)

// CommandKind discriminates the handful of things a Client can ask the
// actor to do.
type CommandKind int

const (
	CmdSubscribe CommandKind = iota
	CmdClose
	CmdPing
)

// Command is the unit of work sent down the actor's command channel. Only
// the fields relevant to Kind are populated.
type Command struct {
	Kind CommandKind
	ID   uint64

	// Text is the already-serialized subscribe message, set for CmdSubscribe.
	// Encoding happens in the caller (Client/Operation), not here: the actor
	// has no business knowing how a request payload was produced.
	Text string

	// Delivery is the subscription's queue, set for CmdSubscribe.
	Delivery chan<- json.RawMessage

	// CloseCode and CloseReason are set for CmdClose.
	CloseCode   uint16
	CloseReason string
}

// SubscribeCommand builds a CmdSubscribe command.
func SubscribeCommand(id uint64, text string, delivery chan<- json.RawMessage) Command {
	return Command{Kind: CmdSubscribe, ID: id, Text: text, Delivery: delivery}
}

// CloseCommand builds a CmdClose command, used to close the connection from
// outside the actor (Client.Close).
func CloseCommand(code uint16, reason string) Command {
	return Command{Kind: CmdClose, CloseCode: code, CloseReason: reason}
}

// PingCommand builds a CmdPing command, used by callers that want to probe
// the connection outside of the keep-alive schedule.
func PingCommand() Command {
	return Command{Kind: CmdPing}
}

type subscriber struct {
	delivery chan<- json.RawMessage
}

// Actor is the connection actor. It is not safe for concurrent use: a given
// instance is driven by exactly one call to Run.
type Actor struct {
	conn     transport.Connection
	commands <-chan Command
	// cancels is a dedicated, generously-buffered lane for subscription
	// cancellation, kept separate from the main command channel so that a
	// Subscription being stopped or garbage-collected can always notify the
	// actor with a non-blocking send regardless of how full commands is.
	cancels <-chan uint64
	ka      *keepalive.Scheduler
	log     zerolog.Logger

	subs      map[uint64]subscriber
	closeSent bool

	ctx context.Context
}

// New builds a connection actor. keepAliveInterval of zero disables the
// keep-alive scheduler entirely.
func New(conn transport.Connection, commands <-chan Command, cancels <-chan uint64, keepAliveInterval time.Duration, keepAliveRetries int, log zerolog.Logger) *Actor {
	return &Actor{
		conn:     conn,
		commands: commands,
		cancels:  cancels,
		ka:       keepalive.NewScheduler(keepAliveInterval, keepAliveRetries),
		log:      log,
		subs:     make(map[uint64]subscriber),
	}
}

// Run drives the actor until the connection ends, the context is cancelled,
// or a CmdClose command / protocol violation forces a shutdown. It returns
// the reason the loop ended; nil only for a graceful shutdown, where the
// command channel has been closed and no subscriptions remain. A CmdClose
// returns a CloseKind error carrying the requested code and reason.
func (a *Actor) Run(ctx context.Context) error {
	a.ctx = ctx

	recvCh, recvDone := a.startReceiver()
	defer close(recvDone)

	commands := a.commands
	recv := recvCh
	var finalErr error

loop:
	for {
		if commands == nil && len(a.subs) == 0 {
			a.log.Debug().Msg("actor: command channel closed and no subscriptions remain, shutting down")
			break loop
		}

		select {
		case <-ctx.Done():
			finalErr = ctx.Err()
			break loop

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue loop
			}
			terminate, err := a.handleCommand(cmd)
			if err != nil {
				finalErr = err
			}
			if terminate {
				break loop
			}

		case id, ok := <-a.cancels:
			if !ok {
				a.cancels = nil
				continue loop
			}
			a.handleCancel(id)

		case msg, ok := <-recv:
			if !ok {
				recv = nil
				finalErr = transport.NewUnknownError("transport ended without a close frame")
				break loop
			}
			a.ka.Kick()
			terminate, err := a.handleMessage(msg)
			if err != nil {
				finalErr = err
			}
			if terminate {
				break loop
			}

		case <-a.ka.Timer():
			outcome := a.ka.Elapsed()
			if outcome.TimedOut {
				a.log.Warn().Msg("actor: keep-alive timed out, closing")
				a.sendClose(protocol.CloseKeepAliveTimeout, "keep-alive timeout")
				finalErr = transport.NewCloseError(protocol.CloseKeepAliveTimeout, "keep-alive timeout")
				break loop
			}
			if outcome.Ping {
				if err := a.conn.Send(transport.PingMessage()); err != nil {
					finalErr = transport.NewSendError(err.Error())
					break loop
				}
			}
		}
	}

	a.ka.Stop()
	if !a.closeSent {
		// Best effort: the transport may already be gone, in which case this
		// just fails silently.
		_ = a.conn.Send(transport.CloseMessage(protocol.CloseNormal, ""))
	}
	a.closeRemainingSubscriptions()
	return finalErr
}

// closeRemainingSubscriptions ends every subscription still in the table
// when the actor itself stops, regardless of why: a blocked Next must see
// end-of-stream rather than hang forever just because the actor decided to
// stop on its own (keep-alive timeout, a caller close, a protocol
// violation, or ctx being done).
func (a *Actor) closeRemainingSubscriptions() {
	for id, sub := range a.subs {
		delete(a.subs, id)
		close(sub.delivery)
	}
}

// startReceiver spawns the dedicated goroutine that turns the blocking
// Connection.Receive call into a channel, so the actor's select can
// multiplex it against commands and the keep-alive timer. Only this
// goroutine ever calls Receive; only the actor goroutine ever calls Send.
func (a *Actor) startReceiver() (<-chan transport.Message, chan struct{}) {
	out := make(chan transport.Message)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			msg, ok := a.conn.Receive()
			if !ok {
				return
			}
			select {
			case out <- msg:
			case <-done:
				return
			}
		}
	}()
	return out, done
}

func (a *Actor) handleCommand(cmd Command) (terminate bool, err error) {
	switch cmd.Kind {
	case CmdSubscribe:
		if _, exists := a.subs[cmd.ID]; exists {
			// The id allocator (Client's atomic counter) never reissues a
			// live id, so this only fires on a programming error upstream.
			panic(fmt.Sprintf("actor: duplicate subscribe for id %d", cmd.ID))
		}
		a.subs[cmd.ID] = subscriber{delivery: cmd.Delivery}
		if err := a.conn.Send(transport.TextMessage(cmd.Text)); err != nil {
			delete(a.subs, cmd.ID)
			close(cmd.Delivery)
			return false, transport.NewSendError(err.Error())
		}
		return false, nil

	case CmdClose:
		a.log.Debug().Uint16("code", cmd.CloseCode).Msg("actor: closing on caller request")
		a.sendClose(cmd.CloseCode, cmd.CloseReason)
		return true, transport.NewCloseError(cmd.CloseCode, cmd.CloseReason)

	case CmdPing:
		if err := a.conn.Send(transport.PingMessage()); err != nil {
			return false, transport.NewSendError(err.Error())
		}
		return false, nil

	default:
		return false, nil
	}
}

func (a *Actor) handleMessage(msg transport.Message) (terminate bool, err error) {
	switch msg.Kind {
	case transport.Close:
		// Mirror the peer's close back before terminating, so the underlying
		// transport actually gets told to close (some adapters only act on
		// an outgoing Send; see transport/coderws).
		a.sendClose(msg.CloseCode, msg.CloseReason)
		return true, transport.NewCloseError(msg.CloseCode, msg.CloseReason)

	case transport.Ping:
		if err := a.conn.Send(transport.PongMessage()); err != nil {
			return false, transport.NewSendError(err.Error())
		}
		return false, nil

	case transport.Pong:
		return false, nil

	case transport.Text:
		ev, err := protocol.DecodeEvent(msg.Text)
		if err != nil {
			a.sendClose(protocol.CloseDecodeFailure, "malformed message")
			return true, err
		}
		return a.handleEvent(ev)

	default:
		return false, nil
	}
}

func (a *Actor) handleEvent(ev protocol.Event) (terminate bool, err error) {
	switch ev.Type {
	case protocol.EventConnectionAck:
		// The handshake already consumed the one legitimate ack; a second
		// one is a protocol violation from the server.
		a.log.Warn().Msg("actor: received connection_ack after handshake")
		a.sendClose(protocol.CloseTooManyAcks, "unexpected connection_ack")
		return true, transport.NewCloseError(protocol.CloseTooManyAcks, "unexpected connection_ack")

	case protocol.EventPing:
		if err := a.conn.Send(transport.TextMessage(protocol.EncodePong())); err != nil {
			return false, transport.NewSendError(err.Error())
		}
		return false, nil

	case protocol.EventPong:
		return false, nil

	case protocol.EventNext, protocol.EventError:
		return a.forward(ev)

	case protocol.EventComplete:
		id, perr := strconv.ParseUint(ev.ID, 10, 64)
		if perr != nil {
			a.sendClose(protocol.CloseUnknownSubscriber, "malformed subscription id")
			return true, transport.NewCloseError(protocol.CloseUnknownSubscriber, "malformed subscription id")
		}
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub.delivery)
		}
		return false, nil

	default:
		return false, nil
	}
}

// forward delivers a next/error payload to its subscription's queue. While
// stalled on a full or abandoned queue it keeps servicing the cancel lane,
// so an unrelated subscription being cancelled doesn't wait behind this
// one's backpressure, and so a cancel of this exact id unblocks the stalled
// send immediately instead of leaving the actor stuck forever.
func (a *Actor) forward(ev protocol.Event) (terminate bool, err error) {
	id, perr := strconv.ParseUint(ev.ID, 10, 64)
	if perr != nil {
		a.sendClose(protocol.CloseUnknownSubscriber, "malformed subscription id")
		return true, transport.NewCloseError(protocol.CloseUnknownSubscriber, "malformed subscription id")
	}

	sub, ok := a.subs[id]
	if !ok {
		// The caller already cancelled; the server just hasn't caught up
		// yet. Not a protocol violation.
		return false, nil
	}

	payload, _ := ev.ForwardingPayload()

	for {
		select {
		case sub.delivery <- payload:
			// An error does not remove the entry: the server is expected
			// to follow up with a complete, which actually ends it.
			return false, nil

		case cancelID, ok := <-a.cancels:
			if !ok {
				a.cancels = nil
				continue
			}
			a.handleCancel(cancelID)
			if cancelID == id {
				return false, nil
			}

		case <-a.ctx.Done():
			return false, nil
		}
	}
}

// handleCancel removes id from the subscription table and tells the server
// to stop sending for it, if id was still registered. Idempotent: a second
// cancel for an already-removed id is a silent no-op.
func (a *Actor) handleCancel(id uint64) {
	sub, ok := a.subs[id]
	if !ok {
		return
	}
	delete(a.subs, id)
	close(sub.delivery)
	_ = a.conn.Send(transport.TextMessage(protocol.EncodeComplete(idString(id))))
}

func (a *Actor) sendClose(code uint16, reason string) {
	a.closeSent = true
	_ = a.conn.Send(transport.CloseMessage(code, reason))
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}
