package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventType names a ledger change. It doubles as the AMQP message type.
type EventType string

const (
	EntryCreated    EventType = "entry.created"
	EntryUpdated    EventType = "entry.updated"
	EntryDeleted    EventType = "entry.deleted"
	CategoryCreated EventType = "category.created"
	CategoryDeleted EventType = "category.deleted"
)

// LedgerEvent is published after a mutation has been persisted. Exactly
// one of Entry and Category is set.
type LedgerEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Revision   uint64         `json:"revision"`
	Entry      *core.Entry    `json:"entry,omitempty"`
	Category   *core.Category `json:"category,omitempty"`
}

func NewEntryEvent(t EventType, e core.Entry, revision uint64) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Revision:   revision,
		Entry:      &e,
	}
}

func NewCategoryEvent(t EventType, c core.Category, revision uint64) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Revision:   revision,
		Category:   &c,
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
