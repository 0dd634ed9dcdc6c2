// Package guestbook stores public messages to the couple.
package guestbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wedding/internal/guest"
	"wedding/internal/records"
)

// Message is one guestbook entry.
type Message struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	store records.Store
}

func NewService(store records.Store) *Service {
	return &Service{store: store}
}

// Add stores a message. The name is optional.
func (s *Service) Add(ctx context.Context, name, message string) (Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Message{}, &guest.ValidationError{Field: "message", Msg: "please write a message"}
	}
	row := records.Row{"message": message}
	if name = strings.TrimSpace(name); name != "" {
		row["name"] = name
	}
	stored, err := s.store.Insert(ctx, records.TableMessages, row)
	if err != nil {
		return Message{}, fmt.Errorf("add message: %w", err)
	}
	var m Message
	if err := records.Decode(stored, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// List returns messages newest first.
func (s *Service) List(ctx context.Context) ([]Message, error) {
	rows, err := s.store.Select(ctx, records.TableMessages, records.Query{
		Order: []records.Order{records.Desc("created_at"), records.Desc("id")},
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return records.DecodeAll[Message](rows)
}
