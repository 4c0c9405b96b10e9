package entity

import "time"

// Message statuses.
const (
	MessageOK  = "ok"
	MessageNOK = "nok"
)

// Message is an application-level notification row, written once per
// processed inbound notification (success or failure). The notifications UI
// re-queries the latest rows when the bus signals.
type Message struct {
	ID        string
	Status    string // "ok" | "nok"
	Content   string
	CreatedAt time.Time
}
