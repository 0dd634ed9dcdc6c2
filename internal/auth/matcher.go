package auth

import (
	"context"
	"strings"

	"wedding/internal/guest"
)

// Candidate is the identity a guest types into the verification form.
type Candidate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Blank reports whether any field is empty after trimming.
func (c Candidate) Blank() bool {
	return strings.TrimSpace(c.FirstName) == "" ||
		strings.TrimSpace(c.LastName) == "" ||
		strings.TrimSpace(c.Email) == ""
}

// Result is the outcome of a verification.
type Result struct {
	Matched bool
	Guest   *guest.Record
	// Fields is the number of equal fields on the winning record.
	Fields int
	// Best is the highest count seen across all records.
	Best int
}

// MatchThreshold is the number of equal fields a record needs.
const MatchThreshold = 2

// Matcher checks candidates against stored guest records with the 2-of-3 rule.
type Matcher struct {
	guests *guest.Repository
}

// NewMatcher creates a matcher reading from guests.
func NewMatcher(guests *guest.Repository) *Matcher {
	return &Matcher{guests: guests}
}

// Verify scans guests newest first and returns the first record that agrees
// with c on at least two of first name, last name and email after trimming
// and lower-casing. Records missing any of the three are skipped. Store
// errors are returned as errors, never as a failed match.
func (m *Matcher) Verify(ctx context.Context, c Candidate) (Result, error) {
	if c.Blank() {
		return Result{}, nil
	}
	want := [3]string{norm(c.FirstName), norm(c.LastName), norm(c.Email)}

	all, err := m.guests.List(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i := range all {
		rec := all[i]
		if rec.FirstName == "" || rec.LastName == "" || rec.Email == "" {
			continue
		}
		have := [3]string{norm(rec.FirstName), norm(rec.LastName), norm(rec.Email)}
		n := 0
		for f := range want {
			if want[f] == have[f] {
				n++
			}
		}
		if n > res.Best {
			res.Best = n
		}
		if n >= MatchThreshold {
			res.Matched = true
			res.Guest = &rec
			res.Fields = n
			return res, nil
		}
	}
	return res, nil
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
