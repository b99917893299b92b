package graphqlwsclient

// options.go handles functional options for Builder.
//
// Each option returns a closure of type func(*config) capturing whatever
// was passed to the option function, the same pattern used throughout this
// codebase's ambient dependencies: callers compose a slice of options,
// which NewBuilder applies in order before filling in defaults for
// anything left unset.

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultKeepAliveRetries   = 3
	defaultSubscriptionBuffer = 5
	defaultCommandBuffer      = 5
	defaultCancelBuffer       = 64
)

type config struct {
	initPayload            json.RawMessage
	keepAliveInterval      time.Duration
	keepAliveRetries       int
	keepAliveRetriesSet    bool
	subscriptionBufferSize int
	commandBufferSize      int
	cancelBufferSize       int
	logger                 zerolog.Logger
	loggerSet              bool
}

func (c *config) applyDefaults() {
	if !c.keepAliveRetriesSet {
		c.keepAliveRetries = defaultKeepAliveRetries
	}
	if c.subscriptionBufferSize == 0 {
		c.subscriptionBufferSize = defaultSubscriptionBuffer
	}
	if c.commandBufferSize == 0 {
		c.commandBufferSize = defaultCommandBuffer
	}
	if c.cancelBufferSize == 0 {
		c.cancelBufferSize = defaultCancelBuffer
	}
	if !c.loggerSet {
		c.logger = defaultLogger()
	}
}

// Option configures a Builder.
type Option func(*config)

// WithInitPayload sets the payload sent with connection_init. Marshalled
// with encoding/json; pass json.RawMessage directly to send pre-encoded
// bytes verbatim.
func WithInitPayload(payload interface{}) Option {
	return func(c *config) {
		if raw, ok := payload.(json.RawMessage); ok {
			c.initPayload = raw
			return
		}
		buf, err := json.Marshal(payload)
		if err != nil {
			// Surfaced properly at Build time via a stored error would add
			// a field purely for this rare case; instead an invalid
			// payload here degrades to an empty connection_init, which
			// the server will reject as cleanly as a local error would.
			return
		}
		c.initPayload = buf
	}
}

// WithKeepAlive enables the keep-alive scheduler with the given ping
// interval and retry count before a timeout close is emitted.
func WithKeepAlive(interval time.Duration, retries int) Option {
	return func(c *config) {
		c.keepAliveInterval = interval
		c.keepAliveRetries = retries
		c.keepAliveRetriesSet = true
	}
}

// WithSubscriptionBufferSize sets the depth of each subscription's delivery
// queue (default 5).
func WithSubscriptionBufferSize(depth int) Option {
	return func(c *config) {
		c.subscriptionBufferSize = depth
	}
}

// WithCommandBufferSize sets the depth of the actor's main command channel
// (default 5).
func WithCommandBufferSize(depth int) Option {
	return func(c *config) {
		c.commandBufferSize = depth
	}
}

// WithLogger sets the zerolog.Logger the builder, the Client and the
// connection actor log through. Unset, logging is discarded.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.logger = log
		c.loggerSet = true
	}
}
