package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wedding/internal/attempts"
	"wedding/internal/guest"
	"wedding/internal/metrics"
)

// ErrNoMatch means no guest record agreed with the candidate on two fields.
var ErrNoMatch = errors.New("no matching guest")

// User-facing messages for the two failure kinds.
const (
	MsgNoMatch = "We couldn't verify your details. Please contact the couple for assistance."
	MsgFailure = "Something went wrong. Please try again or contact the couple."
)

// Authorizer turns successful verifications into stored credentials.
type Authorizer struct {
	matcher  *Matcher
	sessions SessionStore
	recorder attempts.Recorder
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthorizer wires an authorizer. rec and m may be nil.
func NewAuthorizer(matcher *Matcher, sessions SessionStore, rec attempts.Recorder, m *metrics.Metrics, log zerolog.Logger) *Authorizer {
	if rec == nil {
		rec = attempts.Nop{}
	}
	return &Authorizer{
		matcher:  matcher,
		sessions: sessions,
		recorder: rec,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for AuthenticatedAt.
func (a *Authorizer) WithClock(now func() time.Time) *Authorizer {
	a.now = now
	return a
}

// Matcher exposes the underlying matcher for flows that re-verify a credential.
func (a *Authorizer) Matcher() *Matcher { return a.matcher }

// Login verifies c and, on success, saves a credential under key. The
// credential carries c's values as typed.
func (a *Authorizer) Login(ctx context.Context, key string, c Candidate) (*Credential, error) {
	if err := guest.ValidateIdentity(c.FirstName, c.LastName, c.Email); err != nil {
		a.metrics.AuthAttempt("invalid")
		a.record(ctx, attempts.Attempt{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			At:        a.now(),
		})
		return nil, err
	}

	res, err := a.matcher.Verify(ctx, c)
	if err != nil {
		a.metrics.AuthAttempt("error")
		a.log.Error().Err(err).Msg("verify guest failed")
		return nil, fmt.Errorf("verify guest: %w", err)
	}

	now := a.now()
	a.record(ctx, attempts.Attempt{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Success:       res.Matched,
		FieldsMatched: res.Fields,
		BestMatch:     res.Best,
		At:            now,
	})

	if !res.Matched {
		a.metrics.AuthAttempt("no_match")
		a.log.Info().Int("best_match", res.Best).Msg("guest not verified")
		return nil, ErrNoMatch
	}

	cred := Credential{
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Email:           c.Email,
		AuthenticatedAt: now,
	}
	if err := a.sessions.Save(ctx, key, cred); err != nil {
		a.metrics.AuthAttempt("error")
		return nil, fmt.Errorf("save credential: %w", err)
	}
	a.metrics.AuthAttempt("matched")
	a.log.Info().Int64("guest_id", res.Guest.ID).Int("fields", res.Fields).Msg("guest verified")
	return &cred, nil
}

// Restore returns the credential stored under key, or nil. It does not
// consult guest records.
func (a *Authorizer) Restore(ctx context.Context, key string) (*Credential, error) {
	c, err := a.sessions.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("restore credential: %w", err)
	}
	return c, nil
}

// Logout removes the credential stored under key.
func (a *Authorizer) Logout(ctx context.Context, key string) error {
	if err := a.sessions.Clear(ctx, key); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// MatchCredential re-runs the matcher with a credential's identity and
// returns the matched record. No match is ErrNoMatch.
func (a *Authorizer) MatchCredential(ctx context.Context, c Credential) (guest.Record, error) {
	res, err := a.matcher.Verify(ctx, c.Candidate())
	if err != nil {
		return guest.Record{}, err
	}
	if !res.Matched {
		return guest.Record{}, ErrNoMatch
	}
	return *res.Guest, nil
}

func (a *Authorizer) record(ctx context.Context, at attempts.Attempt) {
	if err := a.recorder.Record(ctx, at); err != nil {
		a.log.Warn().Err(err).Msg("record login attempt failed")
	}
}
