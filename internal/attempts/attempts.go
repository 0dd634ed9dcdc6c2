// Package attempts records guest verification attempts for later review.
// Recording is best-effort: callers log a failure and carry on.
package attempts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding/internal/queue"
	"wedding/internal/records"
)

// MessageType tags attempt messages on the queue.
const MessageType = "login_attempt"

// Attempt is one verification attempt as supplied by the guest.
type Attempt struct {
	ID            string    `json:"attempt_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Success       bool      `json:"success"`
	FieldsMatched int       `json:"fields_matched"`
	BestMatch     int       `json:"best_match"`
	At            time.Time `json:"attempted_at"`
}

// Recorder accepts attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Nop discards attempts.
type Nop struct{}

func (Nop) Record(context.Context, Attempt) error { return nil }

// QueueRecorder publishes attempts for the worker to persist.
type QueueRecorder struct {
	q queue.Queue
}

// NewQueueRecorder creates a recorder over q.
func NewQueueRecorder(q queue.Queue) *QueueRecorder {
	return &QueueRecorder{q: q}
}

// Record publishes a as JSON.
func (r *QueueRecorder) Record(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	msg, err := queue.Encode(MessageType, a)
	if err != nil {
		return err
	}
	if err := r.q.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish attempt: %w", err)
	}
	return nil
}

// StoreSink writes attempts to the login_attempts table.
type StoreSink struct {
	store records.Store
}

// NewStoreSink creates a sink over store.
func NewStoreSink(store records.Store) *StoreSink {
	return &StoreSink{store: store}
}

// Save persists one attempt.
func (s *StoreSink) Save(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	_, err := s.store.Insert(ctx, records.TableLoginAttempts, records.Row{
		"attempt_id":     a.ID,
		"first_name":     a.FirstName,
		"last_name":      a.LastName,
		"email":          a.Email,
		"success":        a.Success,
		"fields_matched": a.FieldsMatched,
		"best_match":     a.BestMatch,
		"attempted_at":   a.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("save attempt %s: %w", a.ID, err)
	}
	return nil
}

// List returns stored attempts, newest first.
func (s *StoreSink) List(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.store.Select(ctx, records.TableLoginAttempts, records.Query{
		Order: []records.Order{records.Desc("attempted_at"), records.Desc("id")},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return records.DecodeAll[Attempt](rows)
}

// Direct records synchronously into a sink.
type Direct struct {
	Sink *StoreSink
}

func (d Direct) Record(ctx context.Context, a Attempt) error {
	return d.Sink.Save(ctx, a)
}

// Drain consumes attempt messages from q and saves them until ctx is done
// or the queue closes. Malformed messages are logged and skipped.
func Drain(ctx context.Context, q queue.Queue, sink *StoreSink, log zerolog.Logger) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume attempts: %w", err)
	}
	for msg := range msgs {
		if msg.Type != MessageType {
			log.Debug().Str("type", msg.Type).Msg("skipping message")
			continue
		}
		var a Attempt
		if err := msg.Decode(&a); err != nil {
			log.Warn().Err(err).Msg("malformed attempt message")
			continue
		}
		if err := sink.Save(ctx, a); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Str("attempt_id", a.ID).Msg("persist attempt failed")
			continue
		}
		log.Debug().Str("attempt_id", a.ID).Bool("success", a.Success).Msg("attempt stored")
	}
	return nil
}
