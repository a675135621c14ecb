package realtime

import (
	"github.com/formalis/backoffice/internal/domain"
)

type EventType string

const (
	// EventInsert carries a freshly created message row.
	EventInsert EventType = "insert"
	// EventUpdate carries the full row after an edit or soft delete.
	EventUpdate EventType = "update"
)

// Event is one change-feed delivery. It always carries the complete changed
// row so subscribers can replace state without a re-fetch.
type Event struct {
	Type    EventType      `json:"type"`
	Message domain.Message `json:"message"`
}
