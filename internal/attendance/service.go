// Package attendance lets a verified guest change their RSVP status.
package attendance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"wedding/internal/auth"
	"wedding/internal/guest"
)

// Service re-matches the session credential and updates the guest's record.
type Service struct {
	auth *auth.Authorizer
	repo *guest.Repository
	log  zerolog.Logger
}

// NewService creates an attendance service.
func NewService(a *auth.Authorizer, repo *guest.Repository, log zerolog.Logger) *Service {
	return &Service{auth: a, repo: repo, log: log}
}

// Update sets attending on the record the credential matches and returns
// the stored record. No match is auth.ErrNoMatch.
func (s *Service) Update(ctx context.Context, cred auth.Credential, attending bool) (guest.Record, error) {
	rec, err := s.auth.MatchCredential(ctx, cred)
	if err != nil {
		return guest.Record{}, err
	}
	if err := s.repo.UpdateAttendance(ctx, rec.ID, attending); err != nil {
		return guest.Record{}, fmt.Errorf("update attendance: %w", err)
	}
	s.log.Info().Int64("guest_id", rec.ID).Bool("attending", attending).Msg("attendance updated")
	return s.repo.Get(ctx, rec.ID)
}
