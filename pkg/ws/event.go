// Package ws is the live-channel gateway: it authenticates websocket
// connections, decodes inbound events and fans outbound events across the
// per-user connection sets.
package ws

import (
	"encoding/json"
	"fmt"

	"baatcheet/pkg/chat"
	"baatcheet/pkg/models"
)

// Envelope is the wire frame for both directions:
//
//	{"event":"message:send","ack":3,"data":{...}}
//
// Acks travel back as {"event":"ack","ack":3,"data":{"ok":true,...}}.
type Envelope struct {
	Event string          `json:"event"`
	Ack   int64           `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AckPayload answers a message:send. ok:false carries no message and is
// only ever sent to the originating connection.
type AckPayload struct {
	OK      bool            `json:"ok"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Inbound is the closed set of client-originated events. Decoding yields
// exactly one variant; dispatch switches over them exhaustively instead of
// routing through a string-keyed handler table.
type Inbound interface{ isInbound() }

// TypingStart relays a typing indicator to the named peer.
type TypingStart struct {
	To string `json:"to"`
}

// TypingStop ends a typing indicator.
type TypingStop struct {
	To string `json:"to"`
}

// MessageSend submits a message through the delivery pipeline.
type MessageSend struct {
	chat.SubmitInput
}

// MessageSeen marks a message seen and notifies the sender's group.
type MessageSeen struct {
	MessageID string `json:"messageId"`
	To        string `json:"to"`
}

// UsersRequest asks for a fresh roster snapshot.
type UsersRequest struct{}

func (TypingStart) isInbound()  {}
func (TypingStop) isInbound()   {}
func (MessageSend) isInbound()  {}
func (MessageSeen) isInbound()  {}
func (UsersRequest) isInbound() {}

// DecodeInbound maps an envelope onto its typed variant. Unknown events are
// an error; the connection drops them without processing.
func DecodeInbound(env Envelope) (Inbound, error) {
	switch env.Event {
	case "typing:start":
		var v TypingStart
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, fmt.Errorf("typing:start: %w", err)
		}
		return v, nil
	case "typing:stop":
		var v TypingStop
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, fmt.Errorf("typing:stop: %w", err)
		}
		return v, nil
	case "message:send":
		var v MessageSend
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, fmt.Errorf("message:send: %w", err)
		}
		return v, nil
	case "message:seen":
		var v MessageSeen
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, fmt.Errorf("message:seen: %w", err)
		}
		return v, nil
	case "users:request":
		return UsersRequest{}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

// encodeEvent builds the outbound frame bytes for an event.
func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// encodeAck builds an ack frame answering the given ack id.
func encodeAck(ackID int64, p AckPayload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: "ack", Ack: ackID, Data: raw})
}
