package app

import "time"

// AvailabilityRule is one stored availability rule string for a user, e.g.
// "every fri time: 8:00 AM-5:00 PM". A user is available at an instant when
// any of their enabled rules matches it.
type AvailabilityRule struct {
	ID             int       `json:"id"`
	UserID         string    `json:"user_id"`
	Rule           string    `json:"rule"`
	Title          string    `json:"title,omitempty"`
	SlotLengthMins int       `json:"slot_length_minutes"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

type Booking struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CandidateEmail string    `json:"candidate_email"`
	StartAtUTC     time.Time `json:"start_at_utc"`
	EndAtUTC       time.Time `json:"end_at_utc"`
	Status         string    `json:"status"`
	Source         string    `json:"source,omitempty"`
	Type           string    `json:"type,omitempty"`
	Description    string    `json:"description,omitempty"`
	Title          string    `json:"title,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
