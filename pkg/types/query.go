package types

import (
	"net/url"
	"strconv"
	"time"

	"github.com/agentstation/utc"
)

// SortOrder is the direction of a sorted listing.
type SortOrder string

// Sort directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DistanceUnit is the unit of a nearby search radius.
type DistanceUnit string

// Distance units.
const (
	UnitKilometers DistanceUnit = "km"
	UnitMiles      DistanceUnit = "miles"
)

// EventQuery filters the event listing. Zero fields are not sent.
type EventQuery struct {
	Page      int       `json:"page,omitempty" yaml:"page,omitempty"`
	Limit     int       `json:"limit,omitempty" yaml:"limit,omitempty"`
	Search    string    `json:"search,omitempty" yaml:"search,omitempty"`
	Location  string    `json:"location,omitempty" yaml:"location,omitempty"`
	City      string    `json:"city,omitempty" yaml:"city,omitempty"`
	StartDate utc.Time  `json:"startDate,omitzero" yaml:"start_date,omitempty"`
	EndDate   utc.Time  `json:"endDate,omitzero" yaml:"end_date,omitempty"`
	SortBy    string    `json:"sortBy,omitempty" yaml:"sort_by,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty" yaml:"sort_order,omitempty"`
}

// Values encodes the query as URL parameters. Dates are sent as RFC3339 UTC.
func (q EventQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setString(v, "search", q.Search)
	setString(v, "location", q.Location)
	setString(v, "city", q.City)
	setTime(v, "startDate", q.StartDate)
	setTime(v, "endDate", q.EndDate)
	setString(v, "sortBy", q.SortBy)
	setString(v, "sortOrder", string(q.SortOrder))
	return v
}

// Equal reports whether two queries select the same events.
func (q EventQuery) Equal(o EventQuery) bool {
	return q.Values().Encode() == o.Values().Encode()
}

// IsZero reports whether no filter is set.
func (q EventQuery) IsZero() bool {
	return len(q.Values()) == 0
}

// NearbyEventsQuery searches events around a point.
type NearbyEventsQuery struct {
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Radius    float64      `json:"radius,omitempty"`
	Unit      DistanceUnit `json:"unit,omitempty"`
	Page      int          `json:"page,omitempty"`
	Limit     int          `json:"limit,omitempty"`
}

// Values encodes the query as URL parameters. Coordinates are always sent.
func (q NearbyEventsQuery) Values() url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	if q.Radius > 0 {
		v.Set("radius", strconv.FormatFloat(q.Radius, 'f', -1, 64))
	}
	setString(v, "unit", string(q.Unit))
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

// RegistrationQuery pages through bookings.
type RegistrationQuery struct {
	Page      int       `json:"page,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Values encodes the query as URL parameters.
func (q RegistrationQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setString(v, "sortOrder", string(q.SortOrder))
	return v
}

// OrganizerRequestQuery pages through organizer requests.
type OrganizerRequestQuery struct {
	Page      int       `json:"page,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	SortBy    string    `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Values encodes the query as URL parameters.
func (q OrganizerRequestQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setString(v, "sortBy", q.SortBy)
	setString(v, "sortOrder", string(q.SortOrder))
	return v
}

func setInt(v url.Values, key string, n int) {
	if n != 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setString(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}

func setTime(v url.Values, key string, t utc.Time) {
	if !t.IsZero() {
		v.Set(key, t.Time.UTC().Format(time.RFC3339))
	}
}
