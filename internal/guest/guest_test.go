package guest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding/internal/records"
)

func intp(v int) *int { return &v }

func seed(t *testing.T, s records.Store, rows ...records.Row) {
	t.Helper()
	for _, r := range rows {
		_, err := s.Insert(context.Background(), records.TableRSVPs, r)
		require.NoError(t, err)
	}
}

func TestValidateIdentity(t *testing.T) {
	cases := []struct {
		name              string
		first, last, mail string
		field             string
	}{
		{"blank first", " ", "Smith", "a@b.co", "first_name"},
		{"blank last", "Ann", "", "a@b.co", "last_name"},
		{"blank email", "Ann", "Smith", "", "email"},
		{"no at", "Ann", "Smith", "ann.example.com", "email"},
		{"no dot", "Ann", "Smith", "ann@example", "email"},
		{"space", "Ann", "Smith", "ann smith@example.com", "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentity(tc.first, tc.last, tc.mail)
			var v *ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tc.field, v.Field)
		})
	}
	assert.NoError(t, ValidateIdentity("Ann", "Smith", " Ann@Example.com "))
}

func TestSubmit_StoresNormalisedRSVP(t *testing.T) {
	store := records.NewMemory()
	svc := NewService(NewRepository(store), nil)
	yes := true

	rec, err := svc.Submit(context.Background(), NewRSVP{
		FirstName: " Ann ", LastName: "Smith", Email: " Ann@Example.COM ", Attending: &yes,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "Ann", rec.FirstName)
	assert.Equal(t, "ann@example.com", rec.Email)
	assert.Empty(t, rec.Phone)
	require.NotNil(t, rec.Attending)
	assert.True(t, *rec.Attending)
	assert.False(t, rec.Seated())
}

func TestSubmit_RejectsDuplicateEmail(t *testing.T) {
	store := records.NewMemory()
	svc := NewService(NewRepository(store), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, NewRSVP{FirstName: "Ann", LastName: "Smith", Email: "ann@example.com"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, NewRSVP{FirstName: "Annie", LastName: "Smith", Email: "ANN@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSubmit_InvalidInputNeverTouchesStore(t *testing.T) {
	store := records.NewMemory()
	svc := NewService(NewRepository(store), nil)

	_, err := svc.Submit(context.Background(), NewRSVP{FirstName: "Ann", LastName: "Smith", Email: "nope"})
	assert.True(t, IsValidation(err))

	rows, err := store.Select(context.Background(), records.TableRSVPs, records.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLookupSeating_GroupsAndFilters(t *testing.T) {
	store := records.NewMemory()
	seed(t, store,
		records.Row{"first_name": "Ann", "last_name": "Smith", "email": "a@x.co", "table": 2, "seat": 1},
		records.Row{"first_name": "Bob", "last_name": "Jones", "email": "b@x.co", "table": 1, "seat": 1},
		records.Row{"first_name": "Cleo", "last_name": "Smithers", "email": "c@x.co", "table": 2, "seat": 2},
		records.Row{"first_name": "Dan", "last_name": "Brown", "email": "d@x.co"},
		records.Row{"first_name": "Eve", "last_name": "Stone", "email": "e@x.co", "table": 3},
	)
	svc := NewService(NewRepository(store), nil)
	ctx := context.Background()

	all, err := svc.LookupSeating(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Table)
	assert.Equal(t, 2, all[1].Table)
	require.Len(t, all[1].Guests, 2)
	assert.Equal(t, "Ann", all[1].Guests[0].FirstName)
	assert.Equal(t, "Cleo", all[1].Guests[1].FirstName)

	hits, err := svc.LookupSeating(ctx, "SMITH")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Table)
	assert.Len(t, hits[0].Guests, 2)

	none, err := svc.LookupSeating(ctx, "dan")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_UpdateSeatingAndAttendance(t *testing.T) {
	store := records.NewMemory()
	seed(t, store, records.Row{"first_name": "Ann", "last_name": "Smith", "email": "a@x.co"})
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.UpdateSeating(ctx, 1, intp(4), intp(2)))
	rec, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, rec.Seated())
	assert.Equal(t, 4, *rec.Table)
	assert.Equal(t, 2, *rec.Seat)

	require.NoError(t, repo.UpdateSeating(ctx, 1, nil, nil))
	require.NoError(t, repo.UpdateAttendance(ctx, 1, false))
	rec, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rec.Table)
	assert.Nil(t, rec.Seat)
	require.NotNil(t, rec.Attending)
	assert.False(t, *rec.Attending)

	_, err = repo.Get(ctx, 99)
	assert.True(t, records.IsNotFound(err))
}

func TestRepository_ListNewestFirst(t *testing.T) {
	store := records.NewMemory()
	seed(t, store,
		records.Row{"first_name": "Old", "last_name": "X", "email": "o@x.co"},
		records.Row{"first_name": "New", "last_name": "X", "email": "n@x.co"},
	)
	list, err := NewRepository(store).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].FirstName)
	assert.Equal(t, "Old", list[1].FirstName)
}
