package hub

import (
	"encoding/json"
	"fmt"
)

// Event is a room-scoped message travelling through the fabric.
type Event struct {
	RoomId  string          `json:"roomId"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	// OriginSessionId is empty for events raised by the server itself.
	OriginSessionId string `json:"originSessionId,omitempty"`
	ExcludeOrigin   bool   `json:"excludeOrigin,omitempty"`
	// DedupeKey, when set, makes the event reach each session at most once.
	DedupeKey string `json:"dedupeKey,omitempty"`
}

func NewEvent(roomId, name string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	return &Event{
		RoomId:  roomId,
		Name:    name,
		Payload: raw,
	}, nil
}

// Message is the wire envelope sent to clients.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(name string, payload any) ([]byte, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", name, err)
		}
	}

	return json.Marshal(Message{Type: name, Payload: raw})
}
