package guest

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"wedding/internal/metrics"
)

// Service handles RSVP submission and the public seating chart.
type Service struct {
	repo    *Repository
	metrics *metrics.Metrics
}

// NewService creates a guest service. m may be nil.
func NewService(repo *Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// Submit validates and stores a new RSVP.
func (s *Service) Submit(ctx context.Context, in NewRSVP) (Record, error) {
	if err := ValidateIdentity(in.FirstName, in.LastName, in.Email); err != nil {
		return Record{}, err
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	exists, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return Record{}, err
	}
	if exists {
		return Record{}, ErrDuplicateEmail
	}

	rec, err := s.repo.Create(ctx, in)
	if err != nil {
		return Record{}, err
	}
	s.metrics.RSVPAccepted()
	return rec, nil
}

// TableGroup is one table of the public seating chart.
type TableGroup struct {
	Table  int      `json:"table"`
	Guests []Record `json:"guests"`
}

// LookupSeating returns seated guests grouped by table. A non-blank query
// keeps guests whose first or last name contains it, ignoring case.
func (s *Service) LookupSeating(ctx context.Context, query string) ([]TableGroup, error) {
	seated, err := s.repo.ListSeated(ctx)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	byTable := make(map[int][]Record)
	for _, rec := range seated {
		if !rec.Seated() {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(rec.FirstName), needle) &&
			!strings.Contains(fold.String(rec.LastName), needle) {
			continue
		}
		byTable[*rec.Table] = append(byTable[*rec.Table], rec)
	}

	out := make([]TableGroup, 0, len(byTable))
	for table, guests := range byTable {
		out = append(out, TableGroup{Table: table, Guests: guests})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
