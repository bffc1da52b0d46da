package types

import (
	"io"
	"strconv"
	"time"

	"github.com/agentstation/utc"
)

// File is an upload attached to a multipart request.
type File struct {
	Name    string
	Content io.Reader
}

// LoginCredentials authenticates a user.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterData creates an account. A non-nil ProfileImage switches the
// request to multipart.
type RegisterData struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ProfileImage *File  `json:"-"`
}

// Fields returns the text parts of a multipart registration.
func (d RegisterData) Fields() map[string]string {
	return map[string]string{
		"name":     d.Name,
		"email":    d.Email,
		"password": d.Password,
	}
}

// UpdateUserData is a partial profile update.
type UpdateUserData struct {
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

// CreateEventData creates an event. Images switch the request to multipart.
type CreateEventData struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        utc.Time `json:"date"`
	Geo
	Images []File `json:"-"`
}

// Fields returns the text parts of a multipart event creation.
func (d CreateEventData) Fields() map[string]string {
	f := map[string]string{
		"title":       d.Title,
		"description": d.Description,
		"date":        formatDate(d.Date),
	}
	for k, v := range d.Geo.fields() {
		f[k] = v
	}
	return f
}

// UpdateEventData is a partial event update; nil fields are left unchanged.
// Images switch the request to multipart.
type UpdateEventData struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Date        *utc.Time `json:"date,omitempty"`
	Address     *string   `json:"address,omitempty"`
	City        *string   `json:"city,omitempty"`
	State       *string   `json:"state,omitempty"`
	Country     *string   `json:"country,omitempty"`
	PostalCode  *string   `json:"postalCode,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Images      []File    `json:"-"`
}

// Fields returns the set text parts of a multipart event update.
func (d UpdateEventData) Fields() map[string]string {
	f := map[string]string{}
	str := func(k string, p *string) {
		if p != nil {
			f[k] = *p
		}
	}
	num := func(k string, p *float64) {
		if p != nil {
			f[k] = strconv.FormatFloat(*p, 'f', -1, 64)
		}
	}
	str("title", d.Title)
	str("description", d.Description)
	str("address", d.Address)
	str("city", d.City)
	str("state", d.State)
	str("country", d.Country)
	str("postalCode", d.PostalCode)
	num("longitude", d.Longitude)
	num("latitude", d.Latitude)
	if d.Date != nil {
		f["date"] = formatDate(*d.Date)
	}
	return f
}

// IsEmpty reports whether the patch changes nothing.
func (d UpdateEventData) IsEmpty() bool {
	return len(d.Fields()) == 0 && len(d.Images) == 0
}

// CreateOrganizerRequestData applies for the organizer role. It is always
// sent as multipart.
type CreateOrganizerRequestData struct {
	Overview string
	Resume   File
}

// UpdateRequestStatusData moves an organizer request to a new status.
type UpdateRequestStatusData struct {
	Status RequestStatus `json:"status"`
}

func (g Geo) fields() map[string]string {
	return map[string]string{
		"address":    g.Address,
		"city":       g.City,
		"state":      g.State,
		"country":    g.Country,
		"postalCode": g.PostalCode,
		"longitude":  strconv.FormatFloat(g.Longitude, 'f', -1, 64),
		"latitude":   strconv.FormatFloat(g.Latitude, 'f', -1, 64),
	}
}

func formatDate(t utc.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}
