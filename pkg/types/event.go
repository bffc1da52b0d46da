package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/agentstation/utc"
)

// Geo is the location of an event.
type Geo struct {
	Latitude   float64 `json:"latitude" yaml:"latitude"`
	Longitude  float64 `json:"longitude" yaml:"longitude"`
	Address    string  `json:"address" yaml:"address"`
	City       string  `json:"city" yaml:"city"`
	State      string  `json:"state" yaml:"state"`
	Country    string  `json:"country" yaml:"country"`
	PostalCode string  `json:"postalCode" yaml:"postal_code"`
}

// Place returns a short "City, State, Country" description, skipping empty parts.
func (g Geo) Place() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{g.City, g.State, g.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Event is a bookable event created by an organizer.
// CreatedBy is a weak reference to the owning user.
type Event struct {
	ID            int            `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description" yaml:"description"`
	Date          utc.Time       `json:"date" yaml:"date"`
	Geo           `yaml:",inline"`
	Images        ImageList      `json:"images" yaml:"images"`
	CreatedBy     int            `json:"createdBy" yaml:"created_by"`
	CreatedAt     utc.Time       `json:"createdAt" yaml:"created_at"`
	UpdatedAt     utc.Time       `json:"updatedAt" yaml:"updated_at"`
	Creator       *UserSummary   `json:"user,omitempty" yaml:"creator,omitempty"`
	Registrations []Registration `json:"registrations,omitempty" yaml:"registrations,omitempty"`
}

// GetID implements Identifiable.
func (e Event) GetID() int { return e.ID }

// ImageList is the ordered list of image URLs of an event. The API sends it
// as a JSON array, as a string holding a JSON array or a single URL, or as null.
type ImageList []string

// UnmarshalJSON accepts an array of strings or {"url"} objects, a string, or null.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*l = nil
			return nil
		}
		if strings.HasPrefix(s, "[") {
			return l.UnmarshalJSON([]byte(s))
		}
		*l = ImageList{s}
		return nil
	}

	var raw []ImageURL
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ImageList, 0, len(raw))
	for _, u := range raw {
		if u != "" {
			out = append(out, string(u))
		}
	}
	*l = out
	return nil
}
