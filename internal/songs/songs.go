// Package songs collects song requests from verified guests.
package songs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wedding/internal/auth"
	"wedding/internal/guest"
	"wedding/internal/records"
)

// ErrAlreadyRequested is returned when the same title and artist exist.
var ErrAlreadyRequested = errors.New("this song has already been requested")

// Request is a stored song request.
type Request struct {
	ID          int64     `json:"id"`
	SongTitle   string    `json:"song_title"`
	ArtistName  string    `json:"artist_name"`
	RequestedBy string    `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// SongData is the submitted form.
type SongData struct {
	Title  string `json:"song_title"`
	Artist string `json:"artist_name"`
}

type Service struct {
	store records.Store
}

func NewService(store records.Store) *Service {
	return &Service{store: store}
}

// Add stores a request attributed to the credential holder.
func (s *Service) Add(ctx context.Context, cred auth.Credential, d SongData) (Request, error) {
	title := strings.TrimSpace(d.Title)
	artist := strings.TrimSpace(d.Artist)
	switch {
	case title == "":
		return Request{}, &guest.ValidationError{Field: "song_title", Msg: "please enter a song title"}
	case artist == "":
		return Request{}, &guest.ValidationError{Field: "artist_name", Msg: "please enter an artist"}
	}

	_, err := s.store.SelectOne(ctx, records.TableSongRequests,
		records.Eq("song_title", title), records.Eq("artist_name", artist))
	switch {
	case err == nil:
		return Request{}, ErrAlreadyRequested
	case !records.IsNotFound(err):
		return Request{}, fmt.Errorf("check song request: %w", err)
	}

	row, err := s.store.Insert(ctx, records.TableSongRequests, records.Row{
		"song_title":   title,
		"artist_name":  artist,
		"requested_by": strings.TrimSpace(cred.FirstName + " " + cred.LastName),
	})
	if err != nil {
		return Request{}, fmt.Errorf("add song request: %w", err)
	}
	var out Request
	if err := records.Decode(row, &out); err != nil {
		return Request{}, err
	}
	return out, nil
}

// List returns every request, newest first.
func (s *Service) List(ctx context.Context) ([]Request, error) {
	rows, err := s.store.Select(ctx, records.TableSongRequests, records.Query{
		Order: []records.Order{records.Desc("created_at"), records.Desc("id")},
	})
	if err != nil {
		return nil, fmt.Errorf("list song requests: %w", err)
	}
	return records.DecodeAll[Request](rows)
}
