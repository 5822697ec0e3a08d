package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types recorded on a lead's timeline. The set is closed: the
// timeline_events table enforces it with a CHECK constraint.
const (
	EventStageChanged = "stage_changed"
	EventNote         = "note"
	EventFollowUp     = "followup"
)

// Follow-up channels accepted by AppendFollowUp.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelCall     = "call"
)

// StageChangedPayload records a lead crossing stages. From is empty for the
// initial assignment into the default stage.
type StageChangedPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

// NotePayload is a free-text remark from an agent.
type NotePayload struct {
	Text string `json:"text"`
}

// FollowUpPayload schedules a future touchpoint on a specific channel.
type FollowUpPayload struct {
	Date    time.Time `json:"date"`
	Channel string    `json:"channel"`
}

// TimelineEvent is a single immutable entry on a lead's history. Payload
// holds exactly one of the payload variants, keyed by Type.
type TimelineEvent struct {
	ID        uuid.UUID       `json:"id"`
	ContactID uuid.UUID       `json:"contactId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EncodePayload serializes a payload variant after checking it matches the
// declared event type.
func EncodePayload(eventType string, payload any) (json.RawMessage, error) {
	switch eventType {
	case EventStageChanged:
		if _, ok := payload.(StageChangedPayload); !ok {
			return nil, fmt.Errorf("payload for %s must be StageChangedPayload", eventType)
		}
	case EventNote:
		if _, ok := payload.(NotePayload); !ok {
			return nil, fmt.Errorf("payload for %s must be NotePayload", eventType)
		}
	case EventFollowUp:
		if _, ok := payload.(FollowUpPayload); !ok {
			return nil, fmt.Errorf("payload for %s must be FollowUpPayload", eventType)
		}
	default:
		return nil, fmt.Errorf("unknown timeline event type %q", eventType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return raw, nil
}

// ValidChannel reports whether ch is an accepted follow-up channel.
func ValidChannel(ch string) bool {
	switch ch {
	case ChannelEmail, ChannelWhatsApp, ChannelCall:
		return true
	}
	return false
}
