// Package dietary stores the dietary restrictions a verified guest reports.
package dietary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wedding/internal/auth"
	"wedding/internal/records"
)

// Common lists the restrictions offered as checkboxes.
var Common = []string{
	"Vegetarian",
	"Vegan",
	"Gluten-Free",
	"Dairy-Free",
	"Nut Allergy",
	"Shellfish Allergy",
	"Kosher",
	"Halal",
	"No Pork",
	"No Beef",
	"Low Sodium",
	"Diabetic Friendly",
}

// Data is what the guest submits.
type Data struct {
	Restrictions    []string `json:"restrictions"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
}

// Restrictions is the stored row for one guest.
type Restrictions struct {
	ID              int64            `json:"id"`
	RSVPID          int64            `json:"rsvp_id"`
	Restrictions    records.JSONList `json:"restrictions"`
	AdditionalNotes *string          `json:"additional_notes"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
}

// Service saves and reads dietary restrictions.
type Service struct {
	auth  *auth.Authorizer
	store records.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(a *auth.Authorizer, store records.Store, log zerolog.Logger) *Service {
	return &Service{
		auth:  a,
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Save matches the credential to a guest and inserts or replaces that
// guest's restrictions.
func (s *Service) Save(ctx context.Context, cred auth.Credential, d Data) (*Restrictions, error) {
	rec, err := s.auth.MatchCredential(ctx, cred)
	if err != nil {
		return nil, err
	}

	row := records.Row{
		"restrictions":     clean(d.Restrictions),
		"additional_notes": nil,
	}
	if notes := strings.TrimSpace(d.AdditionalNotes); notes != "" {
		row["additional_notes"] = notes
	}

	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		row["updated_at"] = s.now()
		if err := s.store.Update(ctx, records.TableDietary, existing.ID, row); err != nil {
			return nil, fmt.Errorf("update dietary restrictions: %w", err)
		}
	} else {
		row["rsvp_id"] = rec.ID
		if _, err := s.store.Insert(ctx, records.TableDietary, row); err != nil {
			return nil, fmt.Errorf("save dietary restrictions: %w", err)
		}
	}
	s.log.Info().Int64("guest_id", rec.ID).Bool("updated", existing != nil).Msg("dietary restrictions saved")
	return s.Get(ctx, rec.ID)
}

// Get returns the restrictions for a guest, or nil when none were saved.
func (s *Service) Get(ctx context.Context, rsvpID int64) (*Restrictions, error) {
	row, err := s.store.SelectOne(ctx, records.TableDietary, records.Eq("rsvp_id", rsvpID))
	if records.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch dietary restrictions: %w", err)
	}
	var r Restrictions
	if err := records.Decode(row, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ForCredential matches the credential and returns that guest's restrictions.
func (s *Service) ForCredential(ctx context.Context, cred auth.Credential) (*Restrictions, error) {
	rec, err := s.auth.MatchCredential(ctx, cred)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, rec.ID)
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
