// Package events publishes availability updates and booking outcomes to
// Kafka so downstream consumers (notifiers, dashboards) never poll the
// orchestrator.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"slotsniper/internal/model"
	"slotsniper/libs/kafkax"
)

const (
	TopicSlotsUpdated   = "slots.updated.v1"
	TopicBookingOutcome = "booking.outcome.v1"
)

// slotsUpdatedEvent is the wire shape for TopicSlotsUpdated.
type slotsUpdatedEvent struct {
	Location   string       `json:"location"`
	Date       string       `json:"date"`
	Slots      []slotRecord `json:"slots"`
	ObservedAt time.Time    `json:"observed_at"`
}

type slotRecord struct {
	Time              string `json:"time"`
	SubLocation       string `json:"sub_location,omitempty"`
	Available         bool   `json:"available"`
	MarkedFull        bool   `json:"marked_full"`
	RemainingCapacity *int   `json:"remaining_capacity,omitempty"`
}

// bookingOutcomeEvent is the wire shape for TopicBookingOutcome.
type bookingOutcomeEvent struct {
	Location        string   `json:"location"`
	SubLocation     string   `json:"sub_location,omitempty"`
	Date            string   `json:"date"`
	DesiredTimes    []string `json:"desired_times"`
	Outcome         string   `json:"outcome"`
	BookedTime      string   `json:"booked_time,omitempty"`
	ConfirmationRef string   `json:"confirmation_ref,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	FinishedAt      string   `json:"finished_at"`
}

// writer is the slice of kafka.Writer the publisher needs; tests swap it out.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher writes domain events. A nil *Publisher is a valid disabled
// publisher; every method is a no-op on it.
type Publisher struct {
	slots    writer
	outcomes writer
	logger   *slog.Logger
}

// New builds a publisher over the given brokers. Messages for the same
// location land on the same partition so consumers see updates in order.
func New(brokers []string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	mk := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	return &Publisher{
		slots:    mk(TopicSlotsUpdated),
		outcomes: mk(TopicBookingOutcome),
		logger:   logger,
	}
}

// Close flushes and closes the underlying writers.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	for _, w := range []writer{p.slots, p.outcomes} {
		if c, ok := w.(*kafka.Writer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PublishSlots emits the availability snapshot for (location, date).
func (p *Publisher) PublishSlots(ctx context.Context, location string, date time.Time, slots []model.Slot) error {
	if p == nil {
		return nil
	}
	event := slotsUpdatedEvent{
		Location:   location,
		Date:       date.Format(model.DateFormat),
		Slots:      make([]slotRecord, len(slots)),
		ObservedAt: time.Now().UTC(),
	}
	for i, s := range slots {
		event.Slots[i] = slotRecord{
			Time:              s.Time.String(),
			SubLocation:       s.SubLocation,
			Available:         s.Available,
			MarkedFull:        s.MarkedFull,
			RemainingCapacity: s.RemainingCapacity,
		}
	}
	return p.publish(ctx, p.slots, TopicSlotsUpdated, location, event)
}

// PublishOutcome emits the terminal outcome of an orchestration run.
func (p *Publisher) PublishOutcome(ctx context.Context, req model.BookingRequest, outcome model.BookingOutcome) error {
	if p == nil {
		return nil
	}
	event := bookingOutcomeEvent{
		Location:     req.Location,
		SubLocation:  req.SubLocation,
		Date:         req.Date.Format(model.DateFormat),
		DesiredTimes: make([]string, len(req.DesiredTimes)),
		Outcome:      string(outcome.Kind),
		Reason:       outcome.Reason,
		FinishedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for i, t := range req.DesiredTimes {
		event.DesiredTimes[i] = t.String()
	}
	if outcome.Slot != nil {
		event.BookedTime = outcome.Slot.Time.String()
		event.ConfirmationRef = outcome.ConfirmationRef
	}
	return p.publish(ctx, p.outcomes, TopicBookingOutcome, req.Location, event)
}

func (p *Publisher) publish(ctx context.Context, w writer, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", topic, err)
	}
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(uuid.NewString())},
		{Key: "event_type", Value: []byte(topic)},
	}
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write %s: %w", topic, err)
	}
	p.logger.Debug("event published", "topic", topic, "key", key)
	return nil
}
