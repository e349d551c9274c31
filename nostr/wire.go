package nostr

import (
	"encoding/json"
	"fmt"
)

// Filter constrains which events a relay returns for a subscription,
// as defined by NIP-01.
type Filter struct {
	Kinds []int `json:"kinds,omitempty"`
	Since int64 `json:"since,omitempty"`
}

// Event is a NIP-01 event as delivered by a relay
type Event struct {
	Id        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// reqMessage builds the REQ frame opening a subscription
func reqMessage(subID string, filter Filter) ([]byte, error) {
	return json.Marshal([]interface{}{"REQ", subID, filter})
}

// closeMessage builds the CLOSE frame ending a subscription
func closeMessage(subID string) ([]byte, error) {
	return json.Marshal([]interface{}{"CLOSE", subID})
}

// parseEventFrame extracts the event payload from an EVENT frame.
// Other frame labels (EOSE, NOTICE, OK) return nil without error; the
// collection window decides when we are done, not the relay.
func parseEventFrame(data []byte) (*Event, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed relay frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty relay frame")
	}

	var label string
	if err := json.Unmarshal(frame[0], &label); err != nil {
		return nil, fmt.Errorf("malformed frame label: %w", err)
	}
	if label != "EVENT" || len(frame) < 3 {
		return nil, nil
	}

	var event Event
	if err := json.Unmarshal(frame[2], &event); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	return &event, nil
}
