package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventCreated       = "event.created"
	EventUpdated       = "event.updated"
	EventDeleted       = "event.deleted"
	AttendeeRegistered = "attendee.registered"
)

// DomainEvent is the lifecycle notification published to Kafka.
type DomainEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EventID    int64     `json:"eventId"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
	Event      *Event    `json:"event,omitempty"`
}

func NewDomainEvent(kind string, eventID int64, actor string, snapshot *Event) DomainEvent {
	return DomainEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		EventID:    eventID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Event:      snapshot,
	}
}
