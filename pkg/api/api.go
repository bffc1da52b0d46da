// Package api holds the per-resource services of the booking API. Each
// service builds requests and passes them to the shared transport; none of
// them keep state.
package api

import (
	"context"
	"strconv"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/errors"
)

// Requester performs one API call and decodes the envelope's data into out.
type Requester interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

// Services groups the resource services over one transport.
type Services struct {
	Auth              *Auth
	Events            *Events
	Bookings          *Bookings
	OrganizerRequests *OrganizerRequests
}

// New creates all services over r.
func New(r Requester) *Services {
	return &Services{
		Auth:              &Auth{r: r},
		Events:            &Events{r: r},
		Bookings:          &Bookings{r: r},
		OrganizerRequests: &OrganizerRequests{r: r},
	}
}

func itoa(id int) string {
	return strconv.Itoa(id)
}

// notFound names the missing resource when a by-id read gets a 404.
func notFound(resource string, id int, err error) error {
	if errors.IsNotFound(err) {
		return errors.NewNotFoundError(resource, itoa(id), err)
	}
	return err
}
