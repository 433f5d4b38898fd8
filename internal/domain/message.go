package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxLogEntries caps the per-room message log; the oldest entries are
// evicted once the cap is exceeded.
const MaxLogEntries = 200

// Message is an immutable record of a domain event, broadcast to all room
// members. Origin carries the sending session's id so clients can suppress
// the echo of their own actions.
type Message struct {
	ID     string `json:"id"`
	Time   string `json:"timestamp"`
	From   Role   `json:"from"`
	Text   string `json:"text"`
	Origin string `json:"originSessionId,omitempty"`
}

func NewMessage(from Role, text string, at time.Time) Message {
	return Message{
		ID:   uuid.NewString(),
		Time: at.Format("15:04:05"),
		From: from,
		Text: text,
	}
}
