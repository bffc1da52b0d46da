package events

import (
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/cmd/evently/cmd/cmdutil"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

type eventFlags struct {
	title       string
	description string
	date        string
	address     string
	city        string
	state       string
	country     string
	postalCode  string
	lat         float64
	lng         float64
	images      []string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "event title")
	cmd.Flags().StringVar(&f.description, "description", "", "event description")
	cmd.Flags().StringVar(&f.date, "date", "", "start, e.g. 2025-09-01T19:30")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.state, "state", "", "state or region")
	cmd.Flags().StringVar(&f.country, "country", "", "country")
	cmd.Flags().StringVar(&f.postalCode, "postal-code", "", "postal code")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude")
}

func newCreateCommand(appCtx appcontext.Context) *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new event (organizers)",
		Example: `  evently events create --title "Go Night" --date 2025-09-01T19:30 \
    --address "1 Main St" --city Berlin --country Germany --lat 52.52 --lng 13.40 \
    --image poster.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := cmdutil.Date("date", flags.date)
			if err != nil {
				return err
			}
			images, closeImages, err := cmdutil.OpenFiles(flags.images)
			if err != nil {
				return err
			}
			defer closeImages()

			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := client.Events().CreateEvent(cmd.Context(), types.CreateEventData{
				Title:       flags.title,
				Description: flags.description,
				Date:        date,
				Geo: types.Geo{
					Latitude:   flags.lat,
					Longitude:  flags.lng,
					Address:    flags.address,
					City:       flags.city,
					State:      flags.state,
					Country:    flags.country,
					PostalCode: flags.postalCode,
				},
				Images: images,
			})
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, appCtx, ev, func(bool) table.Data {
				return table.Event(ev)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&flags.images, "image", nil, "image file to upload (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newUpdateCommand(appCtx appcontext.Context) *cobra.Command {
	var flags eventFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an event you organize",
		Long:  "Only the fields given as flags are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ID(args[0])
			if err != nil {
				return err
			}
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			images, closeImages, err := cmdutil.OpenFiles(flags.images)
			if err != nil {
				return err
			}
			defer closeImages()
			patch.Images = images

			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := client.Events().UpdateEvent(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, appCtx, ev, func(bool) table.Data {
				return table.Event(ev)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&flags.images, "image", nil, "replace the images with these files (repeatable)")
	return cmd
}

// patch builds a partial update from the flags that were set.
func (f *eventFlags) patch(cmd *cobra.Command) (types.UpdateEventData, error) {
	var p types.UpdateEventData
	set := cmd.Flags().Changed
	str := func(name string, v string, dst **string) {
		if set(name) {
			*dst = &v
		}
	}
	str("title", f.title, &p.Title)
	str("description", f.description, &p.Description)
	str("address", f.address, &p.Address)
	str("city", f.city, &p.City)
	str("state", f.state, &p.State)
	str("country", f.country, &p.Country)
	str("postal-code", f.postalCode, &p.PostalCode)
	if set("lat") {
		p.Latitude = &f.lat
	}
	if set("lng") {
		p.Longitude = &f.lng
	}
	if set("date") {
		d, err := cmdutil.Date("date", f.date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if p.IsEmpty() && len(f.images) == 0 {
		return p, errors.NewValidationError("flags", "", "nothing to update")
	}
	return p, nil
}

func newDeleteCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an event you organize",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ID(args[0])
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Events().DeleteEvent(cmd.Context(), id); err != nil {
				return err
			}
			cmdutil.Done(cmd, appCtx, "Deleted event %d", id)
			return nil
		},
	}
}

func newBookCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Book a place at an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ID(args[0])
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := client.Events().BookEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, appCtx, reg, func(wide bool) table.Data {
				return table.Bookings([]types.Registration{reg}, wide)
			})
		},
	}
}

func newBookingsCommand(appCtx appcontext.Context) *cobra.Command {
	var q types.RegistrationQuery
	cmd := &cobra.Command{
		Use:   "bookings <id>",
		Short: "List who booked an event you organize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cmdutil.ID(args[0])
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			regs, err := client.Bookings().FetchEventBookings(cmd.Context(), id, q)
			if err != nil {
				return err
			}
			if err := cmdutil.Render(cmd, appCtx, regs, func(wide bool) table.Data {
				return table.Bookings(regs, wide)
			}); err != nil {
				return err
			}
			cmdutil.Footer(cmd, appCtx, client.Bookings().Pagination())
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "bookings per page")
	return cmd
}
