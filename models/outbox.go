package models

import "time"

// OutboxEvent is a pending notification written in the same transaction as
// the state change that produced it. A dispatcher drains the table and
// hands events to the delivery adapter; delivery failures never affect the
// originating transition.
type OutboxEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Topic      string    `gorm:"index;not null" json:"topic"`
	Recipient  string    `json:"recipient"`
	Payload    string    `json:"payload"` // JSON context for the template
	Dispatched bool      `gorm:"index;default:false" json:"dispatched"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
