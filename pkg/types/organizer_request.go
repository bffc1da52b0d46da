package types

import (
	"encoding/json"

	"github.com/agentstation/utc"
)

// RequestStatus is the review state of an organizer request.
type RequestStatus string

// Organizer request states. PENDING is the only state that can be reviewed.
const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// String returns the string representation of a request status.
func (s RequestStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

// CanTransition reports whether a request in state s may move to next.
// Only PENDING -> ACCEPTED and PENDING -> REJECTED are allowed.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	return s == RequestPending && (next == RequestAccepted || next == RequestRejected)
}

// OrganizerRequest is an application by a user to become an organizer.
type OrganizerRequest struct {
	ID        int           `json:"id" yaml:"id"`
	UserID    int           `json:"userId" yaml:"user_id"`
	Overview  string        `json:"overview" yaml:"overview"`
	Resume    string        `json:"resume" yaml:"resume"`
	Status    RequestStatus `json:"status" yaml:"status"`
	CreatedAt utc.Time      `json:"createdAt" yaml:"created_at"`
	UpdatedAt utc.Time      `json:"updatedAt" yaml:"updated_at"`
	User      *UserSummary  `json:"user,omitempty" yaml:"user,omitempty"`
}

// GetID implements Identifiable.
func (r OrganizerRequest) GetID() int { return r.ID }

// UnmarshalJSON decodes a request, also accepting the "updateAt" spelling
// some API versions use for the update timestamp.
func (r *OrganizerRequest) UnmarshalJSON(data []byte) error {
	type plain OrganizerRequest
	aux := struct {
		*plain
		UpdateAt *utc.Time `json:"updateAt"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.UpdatedAt.IsZero() && aux.UpdateAt != nil {
		r.UpdatedAt = *aux.UpdateAt
	}
	return nil
}
