// Package table converts domain values into rows for tabular output.
package table

import (
	"strconv"
	"strings"

	"github.com/agentstation/utc"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/evently/pkg/types"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data is a rendered table.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

var title = cases.Title(language.English)

// Label turns an API enum such as "ORGANIZER" into "Organizer".
func Label(s string) string {
	return title.String(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
}

// Date formats t for humans, or "-" when unset.
func Date(t utc.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Time.Local().Format("2006-01-02 15:04")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Events converts events to table format.
func Events(events []types.Event, wide bool) Data {
	headers := []string{"ID", "Title", "Date", "Place"}
	align := []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Address", "Organizer", "Booked", "Description")
		align = append(align, AlignLeft, AlignLeft, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		row := []string{strconv.Itoa(ev.ID), ev.Title, Date(ev.Date), dash(ev.Place())}
		if wide {
			organizer := "-"
			if ev.Creator != nil {
				organizer = ev.Creator.Name
			}
			row = append(row,
				dash(ev.Address),
				organizer,
				strconv.Itoa(len(ev.Registrations)),
				dash(truncate(ev.Description, 60)),
			)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// Event converts a single event to a property table.
func Event(ev types.Event) Data {
	rows := [][]string{
		{"ID", strconv.Itoa(ev.ID)},
		{"Title", ev.Title},
		{"Date", Date(ev.Date)},
		{"Place", dash(ev.Place())},
		{"Address", dash(ev.Address)},
		{"Coordinates", strconv.FormatFloat(ev.Latitude, 'f', 5, 64) + ", " + strconv.FormatFloat(ev.Longitude, 'f', 5, 64)},
		{"Description", dash(ev.Description)},
		{"Images", dash(strings.Join(ev.Images, "\n"))},
		{"Bookings", strconv.Itoa(len(ev.Registrations))},
	}
	if ev.Creator != nil {
		rows = append(rows, []string{"Organizer", ev.Creator.Name})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// Bookings converts registrations to table format.
func Bookings(regs []types.Registration, wide bool) Data {
	headers := []string{"ID", "Event", "Registered"}
	if wide {
		headers = append(headers, "Event Date", "Place", "Attendee")
	}

	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		event := "#" + strconv.Itoa(r.EventID)
		if r.Event != nil && r.Event.Title != "" {
			event = r.Event.Title
		}
		registered := r.RegisteredAt
		if registered.IsZero() {
			registered = r.CreatedAt
		}
		row := []string{strconv.Itoa(r.ID), event, Date(registered)}
		if wide {
			date, place := "-", "-"
			if r.Event != nil {
				date, place = Date(r.Event.Date), dash(r.Event.Place())
			}
			attendee := "#" + strconv.Itoa(r.UserID)
			if r.User != nil {
				attendee = r.User.Name
			}
			row = append(row, date, place, attendee)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: []Align{AlignRight}}
}

// Requests converts organizer requests to table format.
func Requests(reqs []types.OrganizerRequest, wide bool) Data {
	headers := []string{"ID", "Applicant", "Status", "Submitted"}
	if wide {
		headers = append(headers, "Overview", "Resume")
	}

	rows := make([][]string, 0, len(reqs))
	for _, r := range reqs {
		applicant := "#" + strconv.Itoa(r.UserID)
		if r.User != nil {
			applicant = r.User.Name
		}
		row := []string{strconv.Itoa(r.ID), applicant, Label(string(r.Status)), Date(r.CreatedAt)}
		if wide {
			row = append(row, dash(truncate(r.Overview, 60)), dash(r.Resume))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: []Align{AlignRight}}
}

// User converts a user to a property table.
func User(u types.User) Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"ID", strconv.Itoa(u.ID)},
			{"Name", u.Name},
			{"Email", u.Email},
			{"Role", Label(string(u.Role))},
			{"Member Since", Date(u.CreatedAt)},
		},
	}
}
