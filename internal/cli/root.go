// Package cli implements weddingctl, the operator command line.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"wedding/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// OpenFunc builds the service graph a command runs against.
type OpenFunc func(ctx context.Context, opts *RootOptions) (*app.App, error)

// NewRootCommand creates the weddingctl root command.
func NewRootCommand(open OpenFunc) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "weddingctl",
		Short:         "Manage guests, sessions and seating",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	env := &env{opts: opts, open: open}
	cmd.AddCommand(newLoginCommand(env))
	cmd.AddCommand(newWhoamiCommand(env))
	cmd.AddCommand(newLogoutCommand(env))
	cmd.AddCommand(newSeatingCommand(env))
	cmd.AddCommand(newGuestsCommand(env))
	return cmd
}

type env struct {
	opts *RootOptions
	open OpenFunc
}

// run opens the app, hands it to fn and closes it afterwards.
func (e *env) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *Printer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &Printer{Format: e.opts.Format, W: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Verbose: e.opts.Verbose}

	a, err := e.open(ctx, e.opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	defer a.Close()
	return fn(ctx, a, out)
}
