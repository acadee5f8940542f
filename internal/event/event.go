// Package event publishes reservation lifecycle events for the external
// notifier. Delivery is best effort: the reservation transaction has already
// committed when an event is published.
package event

import (
	"context"
	"log/slog"
	"time"
)

// Type names a lifecycle transition.
type Type string

const (
	ReservationSubmitted Type = "reservation.submitted"
	ReservationApproved  Type = "reservation.approved"
	ReservationRejected  Type = "reservation.rejected"
	ReservationEdited    Type = "reservation.edited"
	ReservationDeleted   Type = "reservation.deleted"
)

// Event is the payload consumers receive.
type Event struct {
	Type          Type      `json:"type"`
	ReservationID string    `json:"reservation_id"`
	RequesterID   string    `json:"requester_id"`
	Status        string    `json:"status,omitempty"`
	ResourceIDs   []string  `json:"resource_ids,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Reason        string    `json:"reason,omitempty"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the logger. It is used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.InfoContext(ctx, "reservation event",
		slog.String("type", string(e.Type)),
		slog.String("reservation_id", e.ReservationID),
		slog.String("requester_id", e.RequesterID),
		slog.String("status", e.Status),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
