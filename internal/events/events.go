package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"carriersync/internal/model"
)

// Publisher delivers domain events to whatever broker is configured.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// TrackingUpdate is emitted after a tracking pass changed an order.
type TrackingUpdate struct {
	ID             string               `json:"id"`
	OrderID        int64                `json:"order_id"`
	Barcode        string               `json:"barcode"`
	PreviousStatus int                  `json:"previous_status_id"`
	StatusID       *int                 `json:"status_id,omitempty"`
	Entries        []model.HistoryEntry `json:"entries"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func NewTrackingUpdate(orderID int64, barcode string, previous int, statusID *int, entries []model.HistoryEntry) TrackingUpdate {
	return TrackingUpdate{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		Barcode:        barcode,
		PreviousStatus: previous,
		StatusID:       statusID,
		Entries:        entries,
		OccurredAt:     time.Now().UTC(),
	}
}

// Key partitions events by order so one order's updates stay ordered.
func (u TrackingUpdate) Key() string { return strconv.FormatInt(u.OrderID, 10) }
