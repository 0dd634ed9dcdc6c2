package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wedding/internal/app"
	"wedding/internal/guest"
)

func newGuestsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guests",
		Short: "Inspect RSVPs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every RSVP, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				list, err := a.GuestRepo.List(ctx)
				if err != nil {
					return out.Fail(WrapExitError(ExitCommandError, "list guests", err))
				}
				return out.Emit(list, func(w io.Writer) { printGuests(w, list) })
			})
		},
	})
	return cmd
}

func printGuests(w io.Writer, list []guest.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tTABLE\tSEAT\tATTENDING")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FirstName, r.LastName, r.Email, intOrDash(r.Table), intOrDash(r.Seat), attending(r.Attending))
	}
	_ = tw.Flush()
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func attending(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "yes"
	}
	return "no"
}
