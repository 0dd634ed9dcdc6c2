package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"wedding/internal/app"
	"wedding/internal/guest"
	"wedding/internal/seating"
)

func newSeatingCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seating",
		Short: "Inspect and edit table assignments",
	}
	cmd.AddCommand(newSeatingShowCommand(e))
	cmd.AddCommand(newSeatingMoveCommand(e))
	cmd.AddCommand(newSeatingAssignCommand(e))
	return cmd
}

func newSeatingShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the seating board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				b, err := a.Seating.Load(ctx)
				if err != nil {
					return out.Fail(WrapExitError(ExitCommandError, "load board", err))
				}
				return out.Emit(b, func(w io.Writer) { printBoard(w, b) })
			})
		},
	}
}

func printBoard(w io.Writer, b seating.Board) {
	for _, g := range b.Groups() {
		guests := b[g]
		if g == seating.Unassigned {
			fmt.Fprintf(w, "Unassigned (%d)\n", len(guests))
		} else {
			fmt.Fprintf(w, "Table %d (%d)\n", g, len(guests))
		}
		for i, r := range guests {
			fmt.Fprintf(w, "  %d. %s %s  #%d%s\n", i, r.FirstName, r.LastName, r.ID, seatSuffix(r))
		}
	}
}

func seatSuffix(r guest.Record) string {
	if r.Seat == nil {
		return ""
	}
	return fmt.Sprintf("  seat %d", *r.Seat)
}

func newSeatingMoveCommand(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "move <guest-id> <from> <from-index> <to> <to-index>",
		Short: "Move a guest between groups and renumber seats",
		Long: `Move a guest on the seating board. Groups are table numbers or "unassigned";
indices are positions within the group as printed by "seating show".`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMove(args)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				if dryRun {
					return planOnly(ctx, a, out, m)
				}
				res, err := a.Seating.Move(ctx, m)
				if err != nil {
					return out.Fail(moveError(err))
				}
				if err := out.Emit(res, func(w io.Writer) { printWrites(w, res.Writes, res.Failed) }); err != nil {
					return err
				}
				if len(res.Failed) > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d of %d seat writes failed", len(res.Failed), len(res.Writes)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the writes without applying them")
	return cmd
}

func planOnly(ctx context.Context, a *app.App, out *Printer, m seating.Move) error {
	b, err := a.Seating.Load(ctx)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "load board", err))
	}
	writes, _, err := seating.PlanMove(b, m)
	if err != nil {
		return out.Fail(moveError(err))
	}
	out.Logf("planned %d write(s) against %d guests", len(writes), b.Len())
	return out.Emit(map[string]any{"writes": writes, "dry_run": true}, func(w io.Writer) {
		printWrites(w, writes, nil)
	})
}

func parseMove(args []string) (seating.Move, error) {
	var m seating.Move
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return m, fmt.Errorf("invalid guest id %q", args[0])
	}
	m.GuestID = id
	if m.From, err = seating.ParseGroupID(args[1]); err != nil {
		return m, err
	}
	if m.FromIndex, err = strconv.Atoi(args[2]); err != nil {
		return m, fmt.Errorf("invalid from-index %q", args[2])
	}
	if m.To, err = seating.ParseGroupID(args[3]); err != nil {
		return m, err
	}
	if m.ToIndex, err = strconv.Atoi(args[4]); err != nil {
		return m, fmt.Errorf("invalid to-index %q", args[4])
	}
	return m, nil
}

func moveError(err error) *ExitError {
	switch {
	case errors.Is(err, seating.ErrBadMove), errors.Is(err, seating.ErrStaleBoard):
		return NewExitError(ExitCommandError, err.Error())
	case errors.Is(err, seating.ErrSyncing):
		return NewExitError(ExitFailure, err.Error())
	}
	return WrapExitError(ExitCommandError, "move failed", err)
}

func printWrites(w io.Writer, writes []seating.Write, failed []seating.WriteFailure) {
	if len(writes) == 0 {
		fmt.Fprintln(w, "No changes")
		return
	}
	for _, wr := range writes {
		if wr.Table == nil {
			fmt.Fprintf(w, "#%d -> unassigned\n", wr.GuestID)
			continue
		}
		fmt.Fprintf(w, "#%d -> table %d seat %d\n", wr.GuestID, *wr.Table, *wr.Seat)
	}
	for _, f := range failed {
		fmt.Fprintf(w, "FAILED #%d: %s\n", f.GuestID, f.Err)
	}
}

func newSeatingAssignCommand(e *env) *cobra.Command {
	var clearSeat bool
	cmd := &cobra.Command{
		Use:   "assign <guest-id> [<table> <seat>]",
		Short: "Set a guest's table and seat directly",
		Args: func(cmd *cobra.Command, args []string) error {
			if clearSeat {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid guest id %q", args[0]))
			}
			var table, seat *int
			if !clearSeat {
				t, terr := strconv.Atoi(args[1])
				s, serr := strconv.Atoi(args[2])
				if terr != nil || serr != nil {
					return NewExitError(ExitCommandError, "table and seat must be numbers")
				}
				table, seat = &t, &s
			}
			return e.run(cmd, func(ctx context.Context, a *app.App, out *Printer) error {
				rec, err := a.Manual.Assign(ctx, id, table, seat)
				if err != nil {
					if msg := validationMessage(err); msg != "" {
						return out.Fail(NewExitError(ExitCommandError, msg))
					}
					return out.Fail(WrapExitError(ExitCommandError, "assign failed", err))
				}
				return out.Emit(rec, func(w io.Writer) {
					if rec.Table == nil {
						fmt.Fprintf(w, "#%d %s %s is now unassigned\n", rec.ID, rec.FirstName, rec.LastName)
						return
					}
					fmt.Fprintf(w, "#%d %s %s -> table %d seat %d\n", rec.ID, rec.FirstName, rec.LastName, *rec.Table, *rec.Seat)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&clearSeat, "clear", false, "remove the guest's table and seat")
	return cmd
}

func validationMessage(err error) string {
	var v *guest.ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	return ""
}
