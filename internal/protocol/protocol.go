// Package protocol implements the pure data types and JSON codec for the
// graphql-transport-ws subprotocol messages: connection_init, connection_ack,
// subscribe, next, error, complete, ping, pong. It does no I/O.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/obmarg/graphql-ws-client/transport"
)

// Close codes the engine uses when it initiates a close.
const (
	CloseNormal             uint16 = 100
	CloseKeepAliveTimeout   uint16 = 4503
	CloseTooManyAcks        uint16 = 4855
	CloseUnknownSubscriber  uint16 = 4856
	CloseDecodeFailure      uint16 = 4857
	CloseUnexpectedHandshake uint16 = 4950
)

// EventType is the "type" discriminator of an incoming protocol event.
type EventType string

const (
	EventConnectionAck EventType = "connection_ack"
	EventPing          EventType = "ping"
	EventPong          EventType = "pong"
	EventNext          EventType = "next"
	EventError         EventType = "error"
	EventComplete      EventType = "complete"
)

// Event is a decoded incoming protocol-layer message. Exactly one of the
// payload-carrying fields is meaningful, selected by Type.
type Event struct {
	Type EventType

	// ID is the subscription id as sent on the wire (decimal string),
	// present for Next, Error and Complete.
	ID string

	// Payload is the raw "payload" value for ConnectionAck, Ping and Pong
	// (may be nil/absent), and for Next (the full response object).
	Payload json.RawMessage

	// Errors is the GraphQL error array carried by an Error event.
	Errors []json.RawMessage
}

// wireEvent mirrors the wire shape so a single struct can decode every
// event type; fields not relevant to a given "type" are simply left zero.
type wireEvent struct {
	Type    EventType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEvent parses a Text message body into an Event.
func DecodeEvent(text string) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return Event{}, transport.NewDecodeError(err.Error())
	}

	ev := Event{Type: w.Type, ID: w.ID, Payload: w.Payload}

	if w.Type == EventError {
		if len(w.Payload) > 0 {
			if err := json.Unmarshal(w.Payload, &ev.Errors); err != nil {
				return Event{}, transport.NewDecodeError(err.Error())
			}
		}
	}

	switch w.Type {
	case EventConnectionAck, EventPing, EventPong, EventNext, EventError, EventComplete:
		return ev, nil
	default:
		return Event{}, transport.NewDecodeError(fmt.Sprintf("unrecognised event type %q", w.Type))
	}
}

// ForwardingPayload returns the JSON value that should be forwarded to a
// subscription's delivery queue for Next and Error events, reshaping an
// Error event's array of GraphQL errors into {"errors": [...]}` as the spec
// requires. Returns ok == false for event types that carry nothing to
// forward.
func (e Event) ForwardingPayload() (json.RawMessage, bool) {
	switch e.Type {
	case EventNext:
		return e.Payload, true
	case EventError:
		wrapped, err := json.Marshal(struct {
			Errors []json.RawMessage `json:"errors"`
		}{Errors: e.Errors})
		if err != nil {
			// Errors is already valid JSON fragments; marshalling the
			// wrapper object cannot fail.
			panic(err)
		}
		return wrapped, true
	default:
		return nil, false
	}
}

// EncodeConnectionInit builds the connection_init command. The payload is
// omitted from the wire entirely when nil, rather than serialized as null.
func EncodeConnectionInit(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return `{"type":"connection_init"}`, nil
	}
	buf, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: "connection_init", Payload: payload})
	if err != nil {
		return "", transport.NewSerializingError(err.Error())
	}
	return string(buf), nil
}

// EncodeSubscribe builds the subscribe command for the given id and an
// already-serialized operation payload.
func EncodeSubscribe(id string, payload json.RawMessage) (string, error) {
	buf, err := json.Marshal(struct {
		Type    string          `json:"type"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}{Type: "subscribe", ID: id, Payload: payload})
	if err != nil {
		return "", transport.NewSerializingError(err.Error())
	}
	return string(buf), nil
}

// EncodeComplete builds the complete command for the given id.
func EncodeComplete(id string) string {
	buf, _ := json.Marshal(struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}{Type: "complete", ID: id})
	return string(buf)
}

// EncodePing builds a standalone application-level ping command. The engine
// never sends one (the wire-level Ping frame is used for the keep-alive
// scheduler instead) but it is kept for completeness of the codec and for
// tests that exercise the wire format directly.
func EncodePing() string {
	return `{"type":"ping"}`
}

// EncodePong builds the application-level pong command sent in reply to a
// server ping event.
func EncodePong() string {
	return `{"type":"pong"}`
}
