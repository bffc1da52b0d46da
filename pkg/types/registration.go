package types

import "github.com/agentstation/utc"

// Registration is a booking of a user for an event. UserID and EventID are
// weak references; the embedded snapshots are present only when the API
// populates them.
type Registration struct {
	ID           int          `json:"id" yaml:"id"`
	UserID       int          `json:"userId" yaml:"user_id"`
	EventID      int          `json:"eventId" yaml:"event_id"`
	RegisteredAt utc.Time     `json:"registeredAt" yaml:"registered_at"`
	CreatedAt    utc.Time     `json:"createdAt" yaml:"created_at"`
	User         *UserSummary `json:"user,omitempty" yaml:"user,omitempty"`
	Event        *Event       `json:"event,omitempty" yaml:"event,omitempty"`
}

// GetID implements Identifiable.
func (r Registration) GetID() int { return r.ID }

// BookedAt returns the registration time, falling back to the creation time
// for API versions that only send createdAt.
func (r Registration) BookedAt() utc.Time {
	if r.RegisteredAt.IsZero() {
		return r.CreatedAt
	}
	return r.RegisteredAt
}
