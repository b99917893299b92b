// Package transport defines the capability a caller supplies to let the
// engine talk to some underlying websocket: the ability to receive and send
// protocol-layer messages, plus the error type used throughout the library.
//
// It lives outside internal/ because adapter authors outside this module
// need to reference Connection, Message and Error without reaching into
// package-private code.
package transport

import "fmt"

// MessageKind discriminates the four kinds of protocol-layer message that
// can cross a Connection. Binary frames are not representable here; adapters
// drop them silently before they reach this layer.
type MessageKind int

const (
	// Text carries a JSON-encoded protocol command or event.
	Text MessageKind = iota
	// Close signals that the transport (or the peer) is closing.
	Close
	// Ping is a transport-level ping control frame.
	Ping
	// Pong is a transport-level pong control frame.
	Pong
)

func (k MessageKind) String() string {
	switch k {
	case Text:
		return "Text"
	case Close:
		return "Close"
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	default:
		return "Unknown"
	}
}

// Message is the transport-layer envelope produced by Connection.Receive and
// consumed by Connection.Send. Only the fields relevant to Kind are set.
type Message struct {
	Kind MessageKind

	// Text is set when Kind == Text.
	Text string

	// CloseCode and CloseReason are set when Kind == Close. Both are
	// optional: a locally-initiated close may carry neither.
	CloseCode   uint16
	HasCode     bool
	CloseReason string
}

// TextMessage builds a Text message.
func TextMessage(s string) Message {
	return Message{Kind: Text, Text: s}
}

// CloseMessage builds a Close message with an explicit code and reason.
func CloseMessage(code uint16, reason string) Message {
	return Message{Kind: Close, HasCode: true, CloseCode: code, CloseReason: reason}
}

// CloseMessageNoCode builds a Close message that carries no code or reason.
func CloseMessageNoCode() Message {
	return Message{Kind: Close}
}

// PingMessage builds a transport-level ping.
func PingMessage() Message { return Message{Kind: Ping} }

// PongMessage builds a transport-level pong.
func PongMessage() Message { return Message{Kind: Pong} }

// Connection is the capability a caller supplies per engine instance: the
// ability to receive and send protocol-layer messages over some transport.
// Both operations may block. The connection actor calls Receive from one
// dedicated goroutine and Send from another, so one Receive and one Send
// may be in flight at the same time; neither method is called concurrently
// with itself.
type Connection interface {
	// Receive yields the next transport message, or ok == false once the
	// transport is closed. Implementations must never return a message of
	// a kind other than Text, Close, Ping or Pong (binary frames are
	// filtered out by the adapter, not by callers of this interface).
	Receive() (Message, bool)

	// Send delivers a message, returning an error if the transport
	// rejects it.
	Send(Message) error
}

// Kind enumerates the taxonomy of errors this library returns, following
// the original crate's error enum one for one.
type Kind int

const (
	// Unknown covers unexpected internal conditions.
	Unknown Kind = iota
	// CloseKind means the transport or peer closed the connection, or the
	// engine itself initiated a close (keep-alive timeout, protocol
	// violation).
	CloseKind
	// DecodeKind means JSON failed to parse, or an Operation's Decode
	// method failed.
	DecodeKind
	// SerializingKind means an outgoing payload failed to serialize.
	SerializingKind
	// SendKind means the command channel or the transport rejected a send.
	SendKind
)

// Error is the error type returned throughout this library.
type Error struct {
	kind   Kind
	text   string
	code   uint16
	reason string
}

func (e *Error) Error() string {
	switch e.kind {
	case CloseKind:
		return fmt.Sprintf("got close frame: code %d, reason %q", e.code, e.reason)
	case DecodeKind:
		return fmt.Sprintf("message decode error: %s", e.text)
	case SerializingKind:
		return fmt.Sprintf("couldn't serialize message: %s", e.text)
	case SendKind:
		return fmt.Sprintf("message sending error: %s", e.text)
	default:
		return fmt.Sprintf("unknown: %s", e.text)
	}
}

// Kind reports the taxonomy of this error.
func (e *Error) Kind() Kind { return e.kind }

// AsClose reports the close code and reason carried by a CloseKind error.
func (e *Error) AsClose() (code uint16, reason string, ok bool) {
	if e.kind != CloseKind {
		return 0, "", false
	}
	return e.code, e.reason, true
}

// NewUnknownError builds an Unknown error.
func NewUnknownError(text string) *Error { return &Error{kind: Unknown, text: text} }

// NewCloseError builds a CloseKind error.
func NewCloseError(code uint16, reason string) *Error {
	return &Error{kind: CloseKind, code: code, reason: reason}
}

// NewDecodeError builds a DecodeKind error.
func NewDecodeError(text string) *Error { return &Error{kind: DecodeKind, text: text} }

// NewSerializingError builds a SerializingKind error.
func NewSerializingError(text string) *Error { return &Error{kind: SerializingKind, text: text} }

// NewSendError builds a SendKind error.
func NewSendError(text string) *Error { return &Error{kind: SendKind, text: text} }
