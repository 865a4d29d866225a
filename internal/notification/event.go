package notification

import (
	"context"
	"time"
)

// Kind distinguishes ledger events.
type Kind string

const (
	KindEntry Kind = "entry"
	KindExit  Kind = "exit"
)

// Event is a best-effort notice about a committed ledger operation.
type Event struct {
	Kind         Kind      `json:"kind"`
	Plate        string    `json:"plate"`
	FacilityID   int64     `json:"facilityId"`
	FacilityName string    `json:"facilityName"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Sender delivers an event to one notification channel. Implementations must honor
// ctx cancellation; the pool bounds every call with a timeout.
type Sender interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}
