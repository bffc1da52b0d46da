// Package requests implements the organizer request commands.
package requests

import (
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/cmd/evently/cmd/cmdutil"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/types"
)

// NewCommand creates the requests command.
func NewCommand(appCtx appcontext.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"request", "rq"},
		GroupID: "account",
		Short:   "Apply to become an organizer, or review applications (admins)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newSubmitCommand(appCtx),
		newListCommand(appCtx),
		newShowCommand(appCtx),
		newReviewCommand(appCtx, "approve", types.RequestAccepted),
		newReviewCommand(appCtx, "reject", types.RequestRejected),
	)
	return cmd
}

func render(cmd *cobra.Command, appCtx appcontext.Context, req types.OrganizerRequest) error {
	return cmdutil.Render(cmd, appCtx, req, func(bool) table.Data {
		return table.Requests([]types.OrganizerRequest{req}, true)
	})
}

func newSubmitCommand(appCtx appcontext.Context) *cobra.Command {
	var overview, resume string
	cmd := &cobra.Command{
		Use:     "submit",
		Short:   "Apply for the organizer role",
		Example: `  evently requests submit --overview "I run the Berlin Go meetup" --resume cv.pdf`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, closeFile, err := cmdutil.OpenFile(resume)
			if err != nil {
				return err
			}
			defer closeFile()

			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			req, err := client.Requests().Submit(cmd.Context(), types.CreateOrganizerRequestData{
				Overview: overview,
				Resume:   file,
			})
			if err != nil {
				return err
			}
			return render(cmd, appCtx, req)
		},
	}
	cmd.Flags().StringVar(&overview, "overview", "", "why you want to organize events")
	cmd.Flags().StringVar(&resume, "resume", "", "resume file to attach")
	_ = cmd.MarkFlagRequired("overview")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func newListCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		q       types.OrganizerRequestQuery
		desc    bool
		pending bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List organizer requests",
		Long:    "Lists every organizer request. Admins only.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if desc {
				q.SortOrder = types.SortDesc
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			reqs, err := client.Requests().FetchRequests(cmd.Context(), q)
			if err != nil {
				return err
			}
			if pending {
				reqs = client.Requests().Pending()
			}
			if err := cmdutil.Render(cmd, appCtx, reqs, func(wide bool) table.Data {
				return table.Requests(reqs, wide)
			}); err != nil {
				return err
			}
			cmdutil.Footer(cmd, appCtx, client.Requests().Pagination())
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "requests per page")
	cmd.Flags().StringVar(&q.SortBy, "sort-by", "", "sort field, e.g. createdAt")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&pending, "pending", false, "only show requests awaiting review")
	return cmd
}

func newShowCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an organizer request",
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
			req, err := client.Requests().FetchRequestByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(cmd, appCtx, req)
		},
	}
}

func newReviewCommand(appCtx appcontext.Context, verb string, status types.RequestStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: "Mark a pending request " + table.Label(string(status)) + " (admins)",
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
			req, err := client.Requests().Review(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			return render(cmd, appCtx, req)
		},
	}
}
