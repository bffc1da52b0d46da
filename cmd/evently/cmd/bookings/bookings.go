// Package bookings implements the registration commands.
package bookings

import (
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/cmd/evently/cmd/cmdutil"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

// ticketSize is the PNG edge length in pixels.
const ticketSize = 256

// NewCommand creates the bookings command.
func NewCommand(appCtx appcontext.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookings",
		Aliases: []string{"booking", "bk"},
		GroupID: "core",
		Short:   "List and manage your event registrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newListCommand(appCtx),
		newShowCommand(appCtx),
		newCancelCommand(appCtx),
		newTicketCommand(appCtx),
	)
	return cmd
}

func newListCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		q    types.RegistrationQuery
		desc bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your bookings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if desc {
				q.SortOrder = types.SortDesc
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			regs, err := client.Bookings().FetchMyBookings(cmd.Context(), q)
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
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "bookings per page")
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	return cmd
}

func newShowCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := fetch(cmd, appCtx, args[0])
			if err != nil {
				return err
			}
			return cmdutil.Render(cmd, appCtx, reg, func(bool) table.Data {
				return table.Bookings([]types.Registration{reg}, true)
			})
		},
	}
}

func newCancelCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a booking",
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
			if err := client.Bookings().CancelBooking(cmd.Context(), id); err != nil {
				return err
			}
			cmdutil.Done(cmd, appCtx, "Booking #%d cancelled", id)
			return nil
		},
	}
}

func newTicketCommand(appCtx appcontext.Context) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "ticket <id>",
		Short: "Print a QR ticket for a booking",
		Long: `Encodes the booking as a QR code. Without --out the code is drawn in the
terminal; with --out a PNG is written.`,
		Example: `  evently bookings ticket 12
  evently bookings ticket 12 --out ticket.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := fetch(cmd, appCtx, args[0])
			if err != nil {
				return err
			}
			payload := TicketPayload(reg)

			if out != "" {
				if err := qrcode.WriteFile(payload, qrcode.Medium, ticketSize, out); err != nil {
					return errors.WrapIO("write", out, err)
				}
				cmdutil.Done(cmd, appCtx, "Ticket written to %s", out)
				return nil
			}

			code, err := qrcode.New(payload, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("encoding ticket: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), code.ToSmallString(false))
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the ticket as PNG to this file")
	return cmd
}

// TicketPayload is the text a booking's QR code carries.
func TicketPayload(reg types.Registration) string {
	return fmt.Sprintf("evently:booking:%d:event:%d:user:%d", reg.ID, reg.EventID, reg.UserID)
}

func fetch(cmd *cobra.Command, appCtx appcontext.Context, arg string) (types.Registration, error) {
	id, err := cmdutil.ID(arg)
	if err != nil {
		return types.Registration{}, err
	}
	client, err := appCtx.Client(cmd.Context())
	if err != nil {
		return types.Registration{}, err
	}
	return client.Bookings().FetchBookingByID(cmd.Context(), id)
}
