package seating

import (
	"context"

	"github.com/rs/zerolog"

	"wedding/internal/guest"
	"wedding/internal/metrics"
)

// Manual writes a single table/seat pair per call with no renumbering.
// Two guests may end up on the same seat.
type Manual struct {
	repo    *guest.Repository
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewManual(repo *guest.Repository, m *metrics.Metrics, log zerolog.Logger) *Manual {
	return &Manual{repo: repo, metrics: m, log: log}
}

// Assign sets the guest's table and seat. Both nil clears them.
func (m *Manual) Assign(ctx context.Context, id int64, table, seat *int) (guest.Record, error) {
	switch {
	case (table == nil) != (seat == nil):
		return guest.Record{}, &guest.ValidationError{Field: "seat", Msg: "table and seat must be set together"}
	case table != nil && *table <= 0:
		return guest.Record{}, &guest.ValidationError{Field: "table", Msg: "must be a positive number"}
	case seat != nil && *seat <= 0:
		return guest.Record{}, &guest.ValidationError{Field: "seat", Msg: "must be a positive number"}
	}
	if _, err := m.repo.Get(ctx, id); err != nil {
		return guest.Record{}, err
	}
	if err := m.repo.UpdateSeating(ctx, id, table, seat); err != nil {
		m.metrics.SeatingWrite("failed")
		return guest.Record{}, err
	}
	m.metrics.SeatingWrite("ok")
	m.log.Info().Int64("guest_id", id).Interface("table", table).Interface("seat", seat).Msg("seat assigned")
	return m.repo.Get(ctx, id)
}
