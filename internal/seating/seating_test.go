package seating

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding/internal/guest"
	"wedding/internal/metrics"
	"wedding/internal/records"
)

// countingStore records every Update that reaches the memory store.
type countingStore struct {
	*records.Memory
	mu     sync.Mutex
	writes []Write
}

func (s *countingStore) Update(ctx context.Context, table string, id int64, patch records.Row) error {
	if err := s.Memory.Update(ctx, table, id, patch); err != nil {
		return err
	}
	w := Write{GuestID: id}
	if v, ok := patch["table"].(int); ok {
		w.Table = &v
	}
	if v, ok := patch["seat"].(int); ok {
		w.Seat = &v
	}
	s.mu.Lock()
	s.writes = append(s.writes, w)
	s.mu.Unlock()
	return nil
}

func (s *countingStore) reset() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.writes
	s.writes = nil
	return out
}

func intp(v int) *int { return &v }

func guestRow(name string, table, seat *int) records.Row {
	r := records.Row{"first_name": name, "last_name": "Guest", "email": name + "@x.co"}
	if table != nil {
		r["table"] = *table
	}
	if seat != nil {
		r["seat"] = *seat
	}
	return r
}

func setup(t *testing.T, tables int, rows ...records.Row) (*Reconciler, *countingStore) {
	t.Helper()
	store := &countingStore{Memory: records.NewMemory()}
	for _, r := range rows {
		_, err := store.Insert(context.Background(), records.TableRSVPs, r)
		require.NoError(t, err)
	}
	rec := NewReconciler(guest.NewRepository(store), tables, nil, zerolog.Nop())
	_, err := rec.Load(context.Background())
	require.NoError(t, err)
	return rec, store
}

func ids(recs []guest.Record) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func indexOf(t *testing.T, recs []guest.Record, id int64) int {
	t.Helper()
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	t.Fatalf("guest %d not in group", id)
	return -1
}

func w(id int64, table, seat int) Write {
	return Write{GuestID: id, Table: intp(table), Seat: intp(seat)}
}

func assertInvariant(t *testing.T, b Board) {
	t.Helper()
	seen := map[int64]GroupID{}
	for g, recs := range b {
		for i, r := range recs {
			prev, dup := seen[r.ID]
			require.False(t, dup, "guest %d in %s and %s", r.ID, prev, g)
			seen[r.ID] = g
			if g == Unassigned {
				assert.False(t, r.Seated(), "unassigned guest %d has a seat", r.ID)
				continue
			}
			require.True(t, r.Seated(), "guest %d in table %s lacks a seat", r.ID, g)
			assert.Equal(t, int(g), *r.Table)
			assert.Equal(t, i+1, *r.Seat, "guest %d at position %d of table %s", r.ID, i, g)
		}
	}
}

func TestParseGroupID(t *testing.T) {
	g, err := ParseGroupID("unassigned")
	require.NoError(t, err)
	assert.Equal(t, Unassigned, g)

	g, err = ParseGroupID("7")
	require.NoError(t, err)
	assert.Equal(t, GroupID(7), g)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := ParseGroupID(bad)
		assert.Error(t, err, bad)
	}

	raw, err := json.Marshal(Board{Unassigned: {}, 2: {}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":[],"unassigned":[]}`, string(raw))

	var m Move
	require.NoError(t, json.Unmarshal([]byte(`{"guest_id":3,"from":"unassigned","from_index":0,"to":"2","to_index":1}`), &m))
	assert.Equal(t, Move{GuestID: 3, From: Unassigned, To: 2, ToIndex: 1}, m)

	require.NoError(t, json.Unmarshal([]byte(`{"guest_id":3,"from":4,"to":"unassigned"}`), &m))
	assert.Equal(t, GroupID(4), m.From)
	assert.Equal(t, Unassigned, m.To)
	assert.Error(t, json.Unmarshal([]byte(`{"from":0}`), &m))
}

func TestGroupByTable(t *testing.T) {
	all := []guest.Record{
		{ID: 5, Table: intp(1), Seat: intp(2)},
		{ID: 4, Table: intp(3)},
		{ID: 3},
		{ID: 2, Table: intp(12), Seat: intp(1)},
		{ID: 1, Table: intp(1), Seat: intp(1)},
	}
	var seated []guest.Record
	for _, r := range all {
		if r.Seated() {
			seated = append(seated, r)
		}
	}

	b := GroupByTable(all, seated, 3)
	assert.Equal(t, []GroupID{1, 2, 3, 12, Unassigned}, b.Groups())
	assert.Equal(t, []int64{1, 5}, ids(b[1]))
	assert.Empty(t, b[2])
	assert.Empty(t, b[3])
	assert.Equal(t, []int64{2}, ids(b[12]))
	assert.Equal(t, []int64{4, 3}, ids(b[Unassigned]))
	assert.Equal(t, len(all), b.Len())
}

func TestMove_ShiftsEveryGuestInTheDestination(t *testing.T) {
	rec, store := setup(t, 10,
		guestRow("g1", intp(2), intp(1)),
		guestRow("g2", intp(2), intp(2)),
		guestRow("g3", nil, nil),
	)

	res, err := rec.Move(context.Background(), Move{GuestID: 3, From: Unassigned, FromIndex: 0, To: 2, ToIndex: 0})
	require.NoError(t, err)

	want := []Write{w(3, 2, 1), w(1, 2, 2), w(2, 2, 3)}
	assert.Equal(t, want, res.Writes)
	assert.Equal(t, want, store.reset())
	assert.Empty(t, res.Failed)
	assert.Equal(t, []int64{3, 1, 2}, ids(res.Board[2]))
	assert.Empty(t, res.Board[Unassigned])
	assertInvariant(t, res.Board)
}

func TestMove_SingleWriteWhenNobodyElseShifts(t *testing.T) {
	rec, store := setup(t, 10,
		guestRow("g1", intp(2), intp(1)),
		guestRow("g2", intp(2), intp(2)),
		guestRow("g3", nil, nil),
	)

	res, err := rec.Move(context.Background(), Move{GuestID: 3, From: Unassigned, FromIndex: 0, To: 2, ToIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []Write{w(3, 2, 3)}, store.reset())
	assert.Equal(t, []int64{1, 2, 3}, ids(res.Board[2]))
}

func TestMove_IntoUnassignedClearsOnlyTheMovedGuestThenRenumbersSource(t *testing.T) {
	rec, store := setup(t, 10,
		guestRow("a", intp(3), intp(1)),
		guestRow("b", intp(3), intp(2)),
		guestRow("c", intp(3), intp(3)),
		guestRow("u", nil, nil),
	)

	res, err := rec.Move(context.Background(), Move{GuestID: 2, From: 3, FromIndex: 1, To: Unassigned, ToIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, []Write{{GuestID: 2}, w(3, 3, 2)}, store.reset())
	assert.Equal(t, []int64{1, 3}, ids(res.Board[3]))
	assert.ElementsMatch(t, []int64{2, 4}, ids(res.Board[Unassigned]))
	assertInvariant(t, res.Board)
}

func TestMove_RoundTripRestoresTableNotSeat(t *testing.T) {
	ctx := context.Background()
	rec, _ := setup(t, 10,
		guestRow("a", intp(3), intp(1)),
		guestRow("b", intp(3), intp(2)),
		guestRow("c", intp(3), intp(3)),
		guestRow("d", nil, nil),
	)

	res, err := rec.Move(ctx, Move{GuestID: 2, From: 3, FromIndex: 1, To: Unassigned, ToIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(res.Board[3]))

	// Nothing moved in between: same position, same seat.
	res, err = rec.Move(ctx, Move{GuestID: 2, From: Unassigned, FromIndex: indexOf(t, res.Board[Unassigned], 2), To: 3, ToIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(res.Board[3]))
	assert.Equal(t, 2, *res.Board[3][1].Seat)

	res, err = rec.Move(ctx, Move{GuestID: 2, From: 3, FromIndex: 1, To: Unassigned, ToIndex: 0})
	require.NoError(t, err)

	// Guest d takes the front of table 3 meanwhile. b returns to the table
	// but its seat follows its new position.
	res, err = rec.Move(ctx, Move{GuestID: 4, From: Unassigned, FromIndex: indexOf(t, res.Board[Unassigned], 4), To: 3, ToIndex: 0})
	require.NoError(t, err)

	res, err = rec.Move(ctx, Move{GuestID: 2, From: Unassigned, FromIndex: indexOf(t, res.Board[Unassigned], 2), To: 3, ToIndex: 0})
	require.NoError(t, err)
	b := res.Board[3]
	require.Equal(t, int64(2), b[0].ID)
	assert.Equal(t, 3, *b[0].Table)
	assert.Equal(t, 1, *b[0].Seat)
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(b))
	assertInvariant(t, res.Board)
}

func TestMove_WithinTable(t *testing.T) {
	rec, store := setup(t, 4,
		guestRow("a", intp(1), intp(1)),
		guestRow("b", intp(1), intp(2)),
		guestRow("c", intp(1), intp(3)),
	)

	res, err := rec.Move(context.Background(), Move{GuestID: 1, From: 1, FromIndex: 0, To: 1, ToIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ids(res.Board[1]))
	assert.Equal(t, []Write{w(2, 1, 1), w(3, 1, 2), w(1, 1, 3)}, store.reset())
}

func TestMove_NoOpWritesNothing(t *testing.T) {
	rec, store := setup(t, 4, guestRow("a", intp(1), intp(1)))

	res, err := rec.Move(context.Background(), Move{GuestID: 1, From: 1, FromIndex: 0, To: 1, ToIndex: 0})
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Empty(t, store.reset())
}

func TestMove_RejectsStaleAndOutOfRange(t *testing.T) {
	rec, store := setup(t, 4,
		guestRow("a", intp(1), intp(1)),
		guestRow("b", nil, nil),
	)
	ctx := context.Background()

	_, err := rec.Move(ctx, Move{GuestID: 2, From: 1, FromIndex: 0, To: 2, ToIndex: 0})
	assert.ErrorIs(t, err, ErrStaleBoard)

	_, err = rec.Move(ctx, Move{GuestID: 1, From: 1, FromIndex: 3, To: 2, ToIndex: 0})
	assert.ErrorIs(t, err, ErrBadMove)

	_, err = rec.Move(ctx, Move{GuestID: 1, From: 1, FromIndex: 0, To: 2, ToIndex: 5})
	assert.ErrorIs(t, err, ErrBadMove)

	_, err = rec.Move(ctx, Move{GuestID: 1, From: 1, FromIndex: 0, To: 9, ToIndex: 0})
	assert.ErrorIs(t, err, ErrBadMove)

	assert.Empty(t, store.reset())
	assert.False(t, rec.Syncing())
}

func TestMove_PartialFailureKeepsGoingAndReloads(t *testing.T) {
	rec, store := setup(t, 10,
		guestRow("g1", intp(2), intp(1)),
		guestRow("g2", intp(2), intp(2)),
		guestRow("g3", nil, nil),
	)
	store.FailUpdate = func(_ string, id int64) error {
		if id == 1 {
			return errors.New("write timeout")
		}
		return nil
	}

	res, err := rec.Move(context.Background(), Move{GuestID: 3, From: Unassigned, FromIndex: 0, To: 2, ToIndex: 0})
	require.NoError(t, err)
	assert.Len(t, res.Writes, 3)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, int64(1), res.Failed[0].GuestID)
	assert.Contains(t, res.Failed[0].Err, "write timeout")

	// The reload shows what the store holds: g1 kept seat 1 next to g3.
	got := map[int64]int{}
	for _, r := range res.Board[2] {
		got[r.ID] = *r.Seat
	}
	assert.Equal(t, map[int64]int{1: 1, 2: 3, 3: 1}, got)
}

func TestMove_DropsWhileSyncing(t *testing.T) {
	rec, store := setup(t, 10,
		guestRow("g1", intp(2), intp(1)),
		guestRow("g2", nil, nil),
	)
	reg := prometheus.NewRegistry()
	rec.metrics = metrics.New(reg)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.FailUpdate = func(string, int64) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := rec.Move(context.Background(), Move{GuestID: 2, From: Unassigned, FromIndex: 0, To: 2, ToIndex: 1})
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first move never started writing")
	}
	assert.True(t, rec.Syncing())

	res, err := rec.Move(context.Background(), Move{GuestID: 1, From: 2, FromIndex: 0, To: Unassigned, ToIndex: 0})
	assert.ErrorIs(t, err, ErrSyncing)
	assert.True(t, res.Dropped)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, rec.Syncing())
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.SeatingMoves.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.SeatingMoves.WithLabelValues("applied")))
}

func TestMove_RandomSequencesKeepSeatsDense(t *testing.T) {
	const tables = 4
	var rows []records.Row
	for i := 0; i < 12; i++ {
		rows = append(rows, guestRow(string(rune('a'+i)), nil, nil))
	}
	rec, _ := setup(t, tables, rows...)
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	board, err := rec.Load(ctx)
	require.NoError(t, err)
	for step := 0; step < 60; step++ {
		groups := board.Groups()
		var from GroupID
		for {
			from = groups[rng.Intn(len(groups))]
			if len(board[from]) > 0 {
				break
			}
		}
		to := groups[rng.Intn(len(groups))]
		fromIdx := rng.Intn(len(board[from]))
		limit := len(board[to])
		if from == to {
			limit--
		}
		m := Move{
			GuestID:   board[from][fromIdx].ID,
			From:      from,
			FromIndex: fromIdx,
			To:        to,
			ToIndex:   rng.Intn(limit + 1),
		}
		res, err := rec.Move(ctx, m)
		require.NoError(t, err, "step %d: %+v", step, m)
		if res.NoOp {
			continue
		}
		board = res.Board
		assertInvariant(t, board)
		assert.Equal(t, len(rows), board.Len())
	}
}

func TestPlanMove_DoesNotModifyInput(t *testing.T) {
	b := Board{
		Unassigned: {{ID: 3}},
		2:          {{ID: 1, Table: intp(2), Seat: intp(1)}},
	}
	writes, next, err := PlanMove(b, Move{GuestID: 3, From: Unassigned, FromIndex: 0, To: 2, ToIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, []Write{w(3, 2, 1), w(1, 2, 2)}, writes)
	assert.Equal(t, []int64{3, 1}, ids(next[2]))

	assert.Equal(t, []int64{3}, ids(b[Unassigned]))
	assert.Equal(t, 1, *b[2][0].Seat)
	assert.Nil(t, b[Unassigned][0].Table)
}

func TestManual_Assign(t *testing.T) {
	ctx := context.Background()
	store := records.NewMemory()
	for _, r := range []records.Row{guestRow("a", intp(1), intp(1)), guestRow("b", nil, nil)} {
		_, err := store.Insert(ctx, records.TableRSVPs, r)
		require.NoError(t, err)
	}
	m := NewManual(guest.NewRepository(store), nil, zerolog.Nop())

	rec, err := m.Assign(ctx, 2, intp(1), intp(1))
	require.NoError(t, err)
	assert.Equal(t, 1, *rec.Table)
	assert.Equal(t, 1, *rec.Seat)

	first, err := guest.NewRepository(store).Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, *first.Seat, "manual entry never renumbers other guests")

	rec, err = m.Assign(ctx, 2, nil, nil)
	require.NoError(t, err)
	assert.False(t, rec.Seated())

	_, err = m.Assign(ctx, 2, intp(1), nil)
	assert.True(t, guest.IsValidation(err))
	_, err = m.Assign(ctx, 2, intp(0), intp(1))
	assert.True(t, guest.IsValidation(err))
	_, err = m.Assign(ctx, 99, intp(1), intp(1))
	assert.True(t, records.IsNotFound(err))
}
