package types

import "encoding/json"

// Envelope is the wrapper every booking API response uses.
// Data is left raw so callers decode it into the endpoint's payload type.
type Envelope struct {
	Success    bool                `json:"success"`
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// PaginationMeta is the paging information returned with list payloads.
type PaginationMeta struct {
	Total       int  `json:"total" yaml:"total"`
	Page        int  `json:"page" yaml:"page"`
	Limit       int  `json:"limit" yaml:"limit"`
	Skip        int  `json:"skip,omitempty" yaml:"skip,omitempty"`
	TotalPages  int  `json:"totalPages" yaml:"total_pages"`
	HasNextPage bool `json:"hasNextPage,omitempty" yaml:"has_next_page,omitempty"`
	HasPrevPage bool `json:"hasPrevPage,omitempty" yaml:"has_prev_page,omitempty"`
}

// EventList is the payload of the event listing endpoints.
type EventList struct {
	Events []Event         `json:"events"`
	Meta   *PaginationMeta `json:"meta,omitempty"`
}

// RegistrationList is the payload of the booking listing endpoints.
type RegistrationList struct {
	Registrations []Registration  `json:"registrations"`
	Meta          *PaginationMeta `json:"meta,omitempty"`
}

// OrganizerRequestList is the payload of the organizer request listing endpoint.
// Older API versions return the items under "requests" instead of "data".
type OrganizerRequestList struct {
	Data     []OrganizerRequest `json:"data,omitempty"`
	Requests []OrganizerRequest `json:"requests,omitempty"`
	Meta     *PaginationMeta    `json:"meta,omitempty"`
}

// Items returns the requests regardless of which key carried them.
func (l OrganizerRequestList) Items() []OrganizerRequest {
	if len(l.Data) > 0 {
		return l.Data
	}
	return l.Requests
}
