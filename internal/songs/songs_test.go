package songs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding/internal/auth"
	"wedding/internal/guest"
	"wedding/internal/records"
)

func TestAdd(t *testing.T) {
	ctx := context.Background()
	svc := NewService(records.NewMemory())
	cred := auth.Credential{FirstName: "Ann", LastName: "Lee"}

	req, err := svc.Add(ctx, cred, SongData{Title: " September ", Artist: "Earth, Wind & Fire"})
	require.NoError(t, err)
	assert.Equal(t, "September", req.SongTitle)
	assert.Equal(t, "Ann Lee", req.RequestedBy)

	_, err = svc.Add(ctx, cred, SongData{Title: "September", Artist: " Earth, Wind & Fire"})
	assert.ErrorIs(t, err, ErrAlreadyRequested)

	_, err = svc.Add(ctx, cred, SongData{Title: "September", Artist: "Someone Else"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, cred, SongData{Title: "  ", Artist: "x"})
	assert.True(t, guest.IsValidation(err))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Someone Else", list[0].ArtistName)
}
