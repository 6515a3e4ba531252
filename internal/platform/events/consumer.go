// Package events consumes change notifications published by the systems
// that write patient data.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	TypePatientChanged = "patient.changed"

	DefaultMaxAttempts = 5
)

// Event is the JSON payload of a patient.changed message. PatientID is
// empty for changes that affect the listing as a whole.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	PatientID string    `json:"patient_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Handler func(ctx context.Context, event Event) error

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  time.Second,
	})
}

type Consumer struct {
	reader      Reader
	handler     Handler
	logger      zerolog.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewConsumer(reader Reader, handler Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader:      reader,
		handler:     handler,
		logger:      logger.With().Str("component", "events").Logger(),
		maxAttempts: DefaultMaxAttempts,
		backoff:     200 * time.Millisecond,
	}
}

// Run processes messages until ctx is cancelled. Messages are committed
// once handled. Undecodable messages are committed and skipped; a handler
// error is retried in place with backoff, and after the last attempt the
// message is logged and committed so one bad event cannot stall the
// partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error().Err(err).Msg("fetch message failed")
			if !sleep(ctx, c.backoff) {
				return ctx.Err()
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping undecodable event")
			c.commit(ctx, msg)
			continue
		}

		if err := c.handle(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error().Err(err).Str("event_id", event.ID).Int("attempts", c.maxAttempts).
				Msg("giving up on event")
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, event Event) error {
	var err error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, event); err == nil {
			return nil
		}
		c.logger.Warn().Err(err).Str("event_id", event.ID).Int("attempt", attempt).Msg("event handler failed")
		if attempt == c.maxAttempts {
			break
		}
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("commit failed")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
