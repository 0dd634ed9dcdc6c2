package seating

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"wedding/internal/guest"
	"wedding/internal/metrics"
)

var (
	// ErrSyncing means another move was still being written; the new move was dropped.
	ErrSyncing = errors.New("a seating move is already in progress")
	// ErrStaleBoard means the move referred to a position that no longer holds the guest.
	ErrStaleBoard = errors.New("seating board changed; reload and try again")
	// ErrBadMove means a group or index was out of range.
	ErrBadMove = errors.New("invalid seating move")
)

// Move relocates one guest from a position in one group to a position in another.
type Move struct {
	GuestID   int64   `json:"guest_id"`
	From      GroupID `json:"from"`
	FromIndex int     `json:"from_index"`
	To        GroupID `json:"to"`
	ToIndex   int     `json:"to_index"`
}

// NoOp reports whether the move leaves the guest where it is.
func (m Move) NoOp() bool {
	return m.From == m.To && m.FromIndex == m.ToIndex
}

// Write is one per-guest seating update. Nil table and seat unassign.
type Write struct {
	GuestID int64 `json:"guest_id"`
	Table   *int  `json:"table"`
	Seat    *int  `json:"seat"`
}

// WriteFailure is a write the store rejected.
type WriteFailure struct {
	Write
	Err string `json:"error"`
}

// MoveResult describes what a move did.
type MoveResult struct {
	Writes  []Write        `json:"writes"`
	Failed  []WriteFailure `json:"failed,omitempty"`
	Board   Board          `json:"board,omitempty"`
	NoOp    bool           `json:"noop,omitempty"`
	Dropped bool           `json:"dropped,omitempty"`
}

// PlanMove applies m to a copy of b and returns the writes needed to persist
// it along with the resulting board. Seat numbers follow position: the guest
// at index i of a table gets seat i+1. Only guests whose table or seat would
// change get a write, except a guest moved into Unassigned, which is always
// written as nil/nil. b is not modified.
func PlanMove(b Board, m Move) ([]Write, Board, error) {
	if m.NoOp() {
		return nil, b.Clone(), nil
	}
	src, ok := b[m.From]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown group %s", ErrBadMove, m.From)
	}
	if _, ok := b[m.To]; !ok && m.To != Unassigned {
		return nil, nil, fmt.Errorf("%w: unknown group %s", ErrBadMove, m.To)
	}
	if m.FromIndex < 0 || m.FromIndex >= len(src) {
		return nil, nil, fmt.Errorf("%w: index %d out of range for %s", ErrBadMove, m.FromIndex, m.From)
	}
	if src[m.FromIndex].ID != m.GuestID {
		return nil, nil, ErrStaleBoard
	}

	next := b.Clone()
	moved := next[m.From][m.FromIndex]
	next[m.From] = append(next[m.From][:m.FromIndex], next[m.From][m.FromIndex+1:]...)

	dst := next[m.To]
	if m.ToIndex < 0 || m.ToIndex > len(dst) {
		return nil, nil, fmt.Errorf("%w: index %d out of range for %s", ErrBadMove, m.ToIndex, m.To)
	}
	dst = append(dst, guest.Record{})
	copy(dst[m.ToIndex+1:], dst[m.ToIndex:])
	dst[m.ToIndex] = moved
	next[m.To] = dst

	var writes []Write
	if m.To == Unassigned {
		writes = append(writes, Write{GuestID: moved.ID})
		for i := range next[Unassigned] {
			if next[Unassigned][i].ID == moved.ID {
				next[Unassigned][i].Table = nil
				next[Unassigned][i].Seat = nil
			}
		}
	} else {
		writes = append(writes, renumber(next, m.To)...)
	}
	if m.From != m.To && m.From != Unassigned {
		writes = append(writes, renumber(next, m.From)...)
	}
	return writes, next, nil
}

// renumber assigns seat = position+1 within table g and returns writes for
// every guest whose stored table or seat differs.
func renumber(b Board, g GroupID) []Write {
	var writes []Write
	recs := b[g]
	for i := range recs {
		table, seat := int(g), i+1
		if recs[i].Table != nil && *recs[i].Table == table && recs[i].Seat != nil && *recs[i].Seat == seat {
			continue
		}
		recs[i].Table = &table
		recs[i].Seat = &seat
		writes = append(writes, Write{GuestID: recs[i].ID, Table: &table, Seat: &seat})
	}
	return writes
}

// Reconciler keeps the grouped board consistent with the guest store.
type Reconciler struct {
	repo       *guest.Repository
	tableCount int
	metrics    *metrics.Metrics
	log        zerolog.Logger

	syncing atomic.Bool

	mu    sync.RWMutex
	board Board
}

// NewReconciler creates a reconciler for tableCount tables. m may be nil.
func NewReconciler(repo *guest.Repository, tableCount int, m *metrics.Metrics, log zerolog.Logger) *Reconciler {
	return &Reconciler{repo: repo, tableCount: tableCount, metrics: m, log: log}
}

// Load fetches guests, derives the board and caches it.
func (r *Reconciler) Load(ctx context.Context) (Board, error) {
	seated, err := r.repo.ListSeated(ctx)
	if err != nil {
		return nil, err
	}
	all, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	b := GroupByTable(all, seated, r.tableCount)

	r.mu.Lock()
	r.board = b
	r.mu.Unlock()
	return b.Clone(), nil
}

// Board returns the last loaded board, or nil before the first Load.
func (r *Reconciler) Board() Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.board == nil {
		return nil
	}
	return r.board.Clone()
}

// Syncing reports whether a move is being written.
func (r *Reconciler) Syncing() bool { return r.syncing.Load() }

// Move applies m against a fresh board, writes the changed positions one
// guest at a time and reloads. A move started while another is in flight is
// dropped with ErrSyncing. A failed write is logged and collected in
// MoveResult.Failed; the remaining writes still run.
func (r *Reconciler) Move(ctx context.Context, m Move) (MoveResult, error) {
	if !r.syncing.CompareAndSwap(false, true) {
		r.metrics.SeatingMove("dropped")
		r.log.Warn().Int64("guest_id", m.GuestID).Msg("move dropped while syncing")
		return MoveResult{Dropped: true}, ErrSyncing
	}
	defer r.syncing.Store(false)

	if m.NoOp() {
		r.metrics.SeatingMove("noop")
		return MoveResult{NoOp: true, Board: r.Board()}, nil
	}

	current, err := r.Load(ctx)
	if err != nil {
		r.metrics.SeatingMove("error")
		return MoveResult{}, fmt.Errorf("load board: %w", err)
	}
	writes, _, err := PlanMove(current, m)
	if err != nil {
		r.metrics.SeatingMove("error")
		return MoveResult{}, err
	}

	res := MoveResult{Writes: writes}
	for _, w := range writes {
		if err := r.repo.UpdateSeating(ctx, w.GuestID, w.Table, w.Seat); err != nil {
			r.metrics.SeatingWrite("failed")
			r.log.Error().Err(err).Int64("guest_id", w.GuestID).Msg("seat update failed")
			res.Failed = append(res.Failed, WriteFailure{Write: w, Err: err.Error()})
			continue
		}
		r.metrics.SeatingWrite("ok")
	}

	reloaded, err := r.Load(ctx)
	if err != nil {
		r.metrics.SeatingMove("error")
		return res, fmt.Errorf("reload board: %w", err)
	}
	res.Board = reloaded
	r.metrics.SeatingMove("applied")
	r.log.Info().
		Int64("guest_id", m.GuestID).
		Str("from", m.From.String()).
		Str("to", m.To.String()).
		Int("writes", len(writes)).
		Int("failed", len(res.Failed)).
		Msg("guest moved")
	return res, nil
}
