package graphqlwsclient

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"sync/atomic"
)

// Subscription is a single-consumer sequence of decoded responses for one
// subscribed operation. Call Next in a loop until it returns
// ErrSubscriptionComplete.
type Subscription[R any] struct {
	id       SubscriptionID
	delivery <-chan json.RawMessage
	op       Operation[R]

	cancels  chan<- uint64
	rawID    uint64
	stopOnce sync.Once
	stopped  atomic.Bool
}

func newSubscription[R any](id SubscriptionID, rawID uint64, delivery <-chan json.RawMessage, cancels chan<- uint64, op Operation[R]) *Subscription[R] {
	s := &Subscription[R]{id: id, rawID: rawID, delivery: delivery, cancels: cancels, op: op}
	// Best-effort safety net: if a caller forgets to call Stop, drop this
	// subscription's slot once the garbage collector notices it's
	// unreachable, rather than leaking it for the life of the connection.
	runtime.SetFinalizer(s, func(s *Subscription[R]) { s.stop() })
	return s
}

// ID returns the identifier for this subscription, usable with Client.Stop
// without needing access to the Subscription itself.
func (s *Subscription[R]) ID() SubscriptionID { return s.id }

// Next blocks until the next decoded response arrives, the subscription
// completes (returning ErrSubscriptionComplete), or ctx is done.
func (s *Subscription[R]) Next(ctx context.Context) (R, error) {
	var zero R
	if s.stopped.Load() {
		return zero, ErrSubscriptionComplete
	}
	select {
	case raw, ok := <-s.delivery:
		if !ok {
			return zero, ErrSubscriptionComplete
		}
		return s.op.Decode(raw)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Stop ends the subscription: it notifies the connection actor so it can
// tell the server to stop sending and free the id, then marks this
// Subscription inert. Safe to call more than once and safe to call after
// the connection has already shut down.
func (s *Subscription[R]) Stop() {
	s.stop()
	runtime.SetFinalizer(s, nil)
}

func (s *Subscription[R]) stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		select {
		case s.cancels <- s.rawID:
		default:
			// The cancel lane is sized generously enough that this should
			// never happen while the actor is alive; if the actor has
			// already shut down nobody is reading it anyway.
		}
	})
}
