package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wedding/internal/app"
	"wedding/internal/auth"
)

func newLoginCommand(e *env) *cobra.Command {
	var c auth.Candidate
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify a guest and store the credential locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				cred, err := a.Auth.Login(ctx, auth.StorageKey, c)
				switch {
				case errors.Is(err, auth.ErrNoMatch):
					return out.Fail(NewExitError(ExitFailure, auth.MsgNoMatch))
				case err != nil:
					out.Logf("login: %v", err)
					if msg := validationMessage(err); msg != "" {
						return out.Fail(NewExitError(ExitCommandError, msg))
					}
					return out.Fail(WrapExitError(ExitCommandError, auth.MsgFailure, err))
				}
				return out.Emit(cred, func(w io.Writer) {
					fmt.Fprintf(w, "Signed in as %s %s <%s>\n", cred.FirstName, cred.LastName, cred.Email)
				})
			})
		},
	}
	cmd.Flags().StringVar(&c.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&c.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&c.Email, "email", "", "email address")
	return cmd
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				cred, err := a.Auth.Restore(ctx, auth.StorageKey)
				if err != nil {
					return out.Fail(WrapExitError(ExitCommandError, "could not read credential", err))
				}
				if cred == nil {
					return out.Fail(NewExitError(ExitFailure, "not signed in"))
				}
				return out.Emit(cred, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s <%s>, verified %s\n",
						cred.FirstName, cred.LastName, cred.Email, cred.AuthenticatedAt.Format("2006-01-02 15:04"))
				})
			})
		},
	}
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				if err := a.Auth.Logout(ctx, auth.StorageKey); err != nil {
					return out.Fail(WrapExitError(ExitCommandError, "logout failed", err))
				}
				return out.Emit(map[string]bool{"signed_out": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Signed out")
				})
			})
		},
	}
}
