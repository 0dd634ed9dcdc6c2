package guest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"wedding/internal/records"
)

// ErrDuplicateEmail is returned when an RSVP already exists for the email.
var ErrDuplicateEmail = errors.New("this email address has already been used for an RSVP")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Record is one invited guest's RSVP row.
type Record struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Table     *int      `json:"table"`
	Seat      *int      `json:"seat"`
	Attending *bool     `json:"attending"`
	CreatedAt time.Time `json:"created_at"`
}

// Seated reports whether both table and seat are set.
func (r Record) Seated() bool {
	return r.Table != nil && r.Seat != nil
}

// FullName joins first and last name.
func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// NewRSVP is the payload of an RSVP submission.
type NewRSVP struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Attending *bool  `json:"attending,omitempty"`
}

// ValidationError is malformed input rejected before any store call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// ValidateIdentity checks the three identity fields the way the RSVP and
// verification forms do: all present, email well formed.
func ValidateIdentity(first, last, email string) error {
	switch {
	case strings.TrimSpace(first) == "":
		return &ValidationError{Field: "first_name", Msg: "please fill in all required fields"}
	case strings.TrimSpace(last) == "":
		return &ValidationError{Field: "last_name", Msg: "please fill in all required fields"}
	case strings.TrimSpace(email) == "":
		return &ValidationError{Field: "email", Msg: "please fill in all required fields"}
	case !emailPattern.MatchString(strings.TrimSpace(email)):
		return &ValidationError{Field: "email", Msg: "please enter a valid email address"}
	}
	return nil
}

// Repository reads and writes guest records through a record store.
type Repository struct {
	store records.Store
}

// NewRepository creates a repository over store.
func NewRepository(store records.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new RSVP.
func (r *Repository) Create(ctx context.Context, in NewRSVP) (Record, error) {
	row := records.Row{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
	}
	if in.Phone != "" {
		row["phone"] = in.Phone
	}
	if in.Attending != nil {
		row["attending"] = *in.Attending
	}
	stored, err := r.store.Insert(ctx, records.TableRSVPs, row)
	if err != nil {
		return Record{}, fmt.Errorf("create rsvp: %w", err)
	}
	var rec Record
	if err := records.Decode(stored, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns every guest, newest first.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.store.Select(ctx, records.TableRSVPs, records.Query{
		Order: []records.Order{records.Desc("created_at"), records.Desc("id")},
	})
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	return records.DecodeAll[Record](rows)
}

// ListSeated returns guests with both table and seat set, by table then seat.
// Ties on seat, possible after manual entry, fall back to id.
func (r *Repository) ListSeated(ctx context.Context) ([]Record, error) {
	rows, err := r.store.Select(ctx, records.TableRSVPs, records.Query{
		Filters: []records.Filter{records.NotNull("table"), records.NotNull("seat")},
		Order:   []records.Order{records.Asc("table"), records.Asc("seat"), records.Asc("id")},
	})
	if err != nil {
		return nil, fmt.Errorf("list seating: %w", err)
	}
	return records.DecodeAll[Record](rows)
}

// Get returns one guest by id.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	row, err := r.store.SelectOne(ctx, records.TableRSVPs, records.Eq("id", id))
	if err != nil {
		return Record{}, fmt.Errorf("get rsvp %d: %w", id, err)
	}
	var rec Record
	if err := records.Decode(row, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// EmailExists reports whether an RSVP exists for the lower-cased email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.store.SelectOne(ctx, records.TableRSVPs, records.Eq("email", strings.ToLower(strings.TrimSpace(email))))
	if records.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// UpdateSeating sets table and seat for one guest. Both nil unassigns.
func (r *Repository) UpdateSeating(ctx context.Context, id int64, table, seat *int) error {
	patch := records.Row{"table": nil, "seat": nil}
	if table != nil {
		patch["table"] = *table
	}
	if seat != nil {
		patch["seat"] = *seat
	}
	if err := r.store.Update(ctx, records.TableRSVPs, id, patch); err != nil {
		return fmt.Errorf("update seating for %d: %w", id, err)
	}
	return nil
}

// UpdateAttendance records whether the guest is attending.
func (r *Repository) UpdateAttendance(ctx context.Context, id int64, attending bool) error {
	if err := r.store.Update(ctx, records.TableRSVPs, id, records.Row{"attending": attending}); err != nil {
		return fmt.Errorf("update attendance for %d: %w", id, err)
	}
	return nil
}
