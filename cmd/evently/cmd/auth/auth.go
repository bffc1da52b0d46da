// Package auth implements the session commands.
package auth

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/cmd/evently/cmd/cmdutil"
	"github.com/agentstation/evently/internal/cmd/table"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

// NewCommand creates the auth command.
func NewCommand(appCtx appcontext.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		GroupID: "account",
		Short:   "Sign in, sign out and manage your account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newLoginCommand(appCtx),
		newRegisterCommand(appCtx),
		newLogoutCommand(appCtx),
		newWhoamiCommand(appCtx),
		newRefreshCommand(appCtx),
		newUpdateCommand(appCtx),
	)
	return cmd
}

type passwordFlags struct {
	password string
	stdin    bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.stdin, "password-stdin", false, "read the password from stdin")
}

func (f *passwordFlags) read(in io.Reader) (string, error) {
	if !f.stdin {
		return f.password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.WrapIO("read", "stdin", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func renderUser(cmd *cobra.Command, appCtx appcontext.Context, u types.User) error {
	return cmdutil.Render(cmd, appCtx, u, func(bool) table.Data {
		return table.User(u)
	})
}

func newLoginCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		email string
		pw    passwordFlags
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Example: `  echo "$PASSWORD" | evently auth login --email ada@example.com --password-stdin`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			u, err := client.Auth().Login(cmd.Context(), types.LoginCredentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			appCtx.Logger().Debug().Int("user_id", u.ID).Msg("Signed in")
			return renderUser(cmd, appCtx, u)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		data  types.RegisterData
		image string
		pw    passwordFlags
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			data.Password = password

			if image != "" {
				f, closeFile, err := cmdutil.OpenFile(image)
				if err != nil {
					return err
				}
				defer closeFile()
				data.ProfileImage = &f
			}

			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			u, err := client.Auth().Register(cmd.Context(), data)
			if err != nil {
				return err
			}
			return renderUser(cmd, appCtx, u)
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "display name")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&image, "image", "", "profile image file")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			if !client.Auth().IsAuthenticated() {
				cmdutil.Done(cmd, appCtx, "Not signed in")
				return nil
			}
			if err := client.Auth().Logout(cmd.Context()); err != nil {
				return err
			}
			cmdutil.Done(cmd, appCtx, "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			u, ok := client.Auth().User()
			if !ok || !client.Auth().IsAuthenticated() {
				return errors.NewAuthenticationError("session", "not signed in, run: evently auth login", nil)
			}
			return renderUser(cmd, appCtx, u)
		},
	}
}

func newRefreshCommand(appCtx appcontext.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			if !client.Auth().RefreshToken(cmd.Context()) {
				return errors.NewAuthenticationError("refresh", "session could not be renewed, sign in again", nil)
			}
			cmdutil.Done(cmd, appCtx, "Session renewed")
			return nil
		},
	}
}

func newUpdateCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		name string
		pw   passwordFlags
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if name == "" && password == "" {
				return errors.NewValidationError("flags", "", "nothing to update")
			}
			client, err := appCtx.Client(cmd.Context())
			if err != nil {
				return err
			}
			u, err := client.Auth().UpdateProfile(cmd.Context(), types.UpdateUserData{Name: name, Password: password})
			if err != nil {
				return err
			}
			return renderUser(cmd, appCtx, u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	pw.register(cmd)
	return cmd
}
