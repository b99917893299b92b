package graphqlwsclient

import (
	"errors"

	"github.com/obmarg/graphql-ws-client/transport"
)

// Error is the error type returned throughout this package: protocol
// violations, transport failures, and handshake failures all surface as one
// of these, discriminated by Kind.
type Error = transport.Error

// ErrorKind discriminates the taxonomy of Error values.
type ErrorKind = transport.Kind

// The kinds of Error a caller may see.
const (
	UnknownError     = transport.Unknown
	CloseError       = transport.CloseKind
	DecodeError      = transport.DecodeKind
	SerializingError = transport.SerializingKind
	SendError        = transport.SendKind
)

// ErrSubscriptionComplete is returned by Subscription.Next once the server
// has sent complete, the connection actor has shut down, or the
// subscription was stopped. It is a sentinel, not a failure: check for it
// with errors.Is to distinguish graceful end-of-stream from a real Error.
var ErrSubscriptionComplete = errors.New("graphqlwsclient: subscription complete")
