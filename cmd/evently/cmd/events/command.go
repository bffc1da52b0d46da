// Package events implements the events command and its subcommands.
package events

import (
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/cmd/evently/cmd/cmdutil"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/types"
)

// NewCommand creates the events command.
func NewCommand(appCtx appcontext.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event", "ev"},
		GroupID: "core",
		Short:   "Browse, publish and book events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newListCommand(appCtx),
		newShowCommand(appCtx),
		newNearbyCommand(appCtx),
		newMineCommand(appCtx),
		newCreateCommand(appCtx),
		newUpdateCommand(appCtx),
		newDeleteCommand(appCtx),
		newBookCommand(appCtx),
		newBookingsCommand(appCtx),
	)
	return cmd
}

type listFlags struct {
	page     int
	limit    int
	search   string
	city     string
	location string
	from     string
	to       string
	sortBy   string
	desc     bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 0, "page number")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "events per page")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search titles and descriptions")
	cmd.Flags().StringVar(&f.city, "city", "", "only events in this city")
	cmd.Flags().StringVar(&f.location, "location", "", "match city, state, country or address")
	cmd.Flags().StringVar(&f.from, "from", "", "only events on or after this date")
	cmd.Flags().StringVar(&f.to, "to", "", "only events on or before this date")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "", "sort field, e.g. date")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

func (f *listFlags) query() (types.EventQuery, error) {
	q := types.EventQuery{
		Page:     f.page,
		Limit:    f.limit,
		Search:   f.search,
		City:     f.city,
		Location: f.location,
		SortBy:   f.sortBy,
	}
	if f.desc {
		q.SortOrder = types.SortDesc
	}
	if f.from != "" {
		t, err := cmdutil.Date("from", f.from)
		if err != nil {
			return q, err
		}
		q.StartDate = t
	}
	if f.to != "" {
		t, err := cmdutil.Date("to", f.to)
		if err != nil {
			return q, err
		}
		q.EndDate = t
	}
	return q, nil
}

func newListCommand(appCtx appcontext.Context) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List upcoming events",
		Example: `  evently events list --city Berlin
  evently events list --search jazz --from 2025-06-01 --sort-by date`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			events, err := client.Events().FetchEvents(cmd.Context(), q)
			if err != nil {
				return err
			}
			if err := cmdutil.Render(cmd, appCtx, events, func(wide bool) table.Data {
				return table.Events(events, wide)
			}); err != nil {
				return err
			}
			cmdutil.Footer(cmd, appCtx, client.Events().Pagination().All)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newShowCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Show one event",
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
			ev, err := client.Events().FetchEventByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, appCtx, ev, func(bool) table.Data {
				return table.Event(ev)
			})
		},
	}
}

func newNearbyCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		q     types.NearbyEventsQuery
		miles bool
	)
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List events around a location",
		Example: `  evently events nearby --lat 52.52 --lng 13.405 --radius 25`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if miles {
				q.Unit = types.UnitMiles
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			events, err := client.Events().FetchNearbyEvents(cmd.Context(), q)
			if err != nil {
				return err
			}
			if err := cmdutil.Render(cmd, appCtx, events, func(wide bool) table.Data {
				return table.Events(events, wide)
			}); err != nil {
				return err
			}
			cmdutil.Footer(cmd, appCtx, client.Events().Pagination().Nearby)
			return nil
		},
	}
	cmd.Flags().Float64Var(&q.Latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&q.Longitude, "lng", 0, "longitude")
	cmd.Flags().Float64Var(&q.Radius, "radius", 0, "search radius (server default when unset)")
	cmd.Flags().BoolVar(&miles, "miles", false, "radius is in miles instead of kilometers")
	cmd.Flags().IntVar(&q.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "events per page")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func newMineCommand(appCtx appcontext.Context) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List the events you organize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			events, err := client.Events().FetchMyEvents(cmd.Context(), q)
			if err != nil {
				return err
			}
			if err := cmdutil.Render(cmd, appCtx, events, func(wide bool) table.Data {
				return table.Events(events, wide)
			}); err != nil {
				return err
			}
			cmdutil.Footer(cmd, appCtx, client.Events().Pagination().Mine)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
