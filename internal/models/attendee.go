package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Attendance is one membership row of an event's attendee set.
type Attendance struct {
	bun.BaseModel `bun:"table:event_attendees,alias:ea"`

	EventID      int64     `bun:"event_id,pk"`
	UserEmail    string    `bun:"user_email,pk"`
	RegisteredAt time.Time `bun:"registered_at,notnull"`
}

// Attendee is the public projection of a registered user.
type Attendee struct {
	Email    string `bun:"email" json:"email"`
	Username string `bun:"username" json:"username"`
}

type RegistrationResult struct {
	EventID           int64 `json:"eventId"`
	AlreadyRegistered bool  `json:"alreadyRegistered"`
}

type CheckInRequest struct {
	Pass string `json:"pass"`
}

// CheckIn is the verified holder of a scanned attendance pass.
type CheckIn struct {
	EventID  int64     `json:"eventId"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issuedAt"`
}
