// Package publisher streams answered check-ins to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/models"
)

// EventPrefix is prepended to the outcome kind to form the event name
const EventPrefix = "checkin."

// Event is the message body written to the topic
type Event struct {
	Event       string             `json:"event"`
	SessionID   string             `json:"session_id"`
	Code        string             `json:"code"`
	Kind        models.OutcomeKind `json:"kind"`
	Source      string             `json:"source"`
	Format      string             `json:"format,omitempty"`
	Attendee    string             `json:"attendee,omitempty"`
	EventTitle  string             `json:"event_title,omitempty"`
	CheckedInAt string             `json:"checked_in_at,omitempty"`
	Label       string             `json:"label,omitempty"`
	At          time.Time          `json:"at"`
}

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes check-in events to a topic. It is best-effort: failures are
// logged and never reach the scan session. With no brokers or topic every method is a no-op.
type Publisher struct {
	writer messageWriter
	topic  string
	log    logger.Logger

	mu    sync.Mutex
	label string
}

// New creates a publisher. If brokers or topic is empty the publisher is disabled.
func New(brokers []string, topic string, log logger.Logger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return &Publisher{log: log}
	}
	return &Publisher{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled reports whether events are actually written
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// SetLabel sets the event label stamped on every message
func (p *Publisher) SetLabel(label string) {
	p.mu.Lock()
	p.label = label
	p.mu.Unlock()
}

// RecordScan publishes rec. Messages are keyed by ticket code so one ticket's
// history stays on one partition.
func (p *Publisher) RecordScan(ctx context.Context, rec models.ScanRecord) error {
	if p.writer == nil {
		return nil
	}
	p.mu.Lock()
	label := p.label
	p.mu.Unlock()
	body, err := json.Marshal(eventFor(rec, label))
	if err != nil {
		p.log.Error("Failed to marshal check-in event", "code", rec.Code, "error", err)
		return nil
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(rec.Code), Value: body}); err != nil {
		p.log.Warn("Failed to publish check-in event", "topic", p.topic, "code", rec.Code, "error", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func eventFor(rec models.ScanRecord, label string) Event {
	at := rec.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		Event:       EventPrefix + string(rec.Kind),
		SessionID:   rec.SessionID,
		Code:        rec.Code,
		Kind:        rec.Kind,
		Source:      rec.Source,
		Format:      rec.Format,
		Attendee:    rec.Attendee,
		EventTitle:  rec.EventTitle,
		CheckedInAt: rec.CheckedInAt,
		Label:       label,
		At:          at.UTC(),
	}
}

// ParseBrokers splits "host1:9092,host2:9092" into a slice
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
