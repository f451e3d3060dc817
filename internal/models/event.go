package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Event dates and times are stored as ISO strings so equality search and
// ordering behave the same on Postgres and SQLite.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Date         string    `bun:"event_date,notnull" json:"date"`
	Time         string    `bun:"event_time,notnull" json:"time"`
	Location     string    `bun:"location,notnull" json:"location"`
	Description  string    `bun:"description,nullzero" json:"description"`
	CreatorEmail string    `bun:"creator_email,notnull" json:"creatorEmail"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// IsOwnedBy reports whether user created the event.
func (e *Event) IsOwnedBy(user *User) bool {
	return user != nil && e.CreatorEmail == user.Email
}

// EventFields is the mutable part of an event, as accepted on create/update.
type EventFields struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Date        string `json:"date" validate:"required,isodate,notpast"`
	Time        string `json:"time" validate:"required,clock"`
	Location    string `json:"location" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=500"`
}

// Apply overwrites the mutable fields of e.
func (f EventFields) Apply(e *Event) {
	e.Name = f.Name
	e.Date = f.Date
	e.Time = f.Time
	e.Location = f.Location
	e.Description = f.Description
}

// SearchQuery filters events; empty fields match everything.
type SearchQuery struct {
	Name     string `validate:"omitempty,min=3"`
	Date     string `validate:"omitempty,isodate,notpast"`
	Location string
}

// Sortable columns accepted by the paginated listing.
var EventSortColumns = map[string]string{
	"id":       "e.id",
	"name":     "e.name",
	"date":     "e.event_date",
	"time":     "e.event_time",
	"location": "e.location",
}
