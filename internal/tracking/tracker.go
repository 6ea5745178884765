package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"carriersync/internal/carrier"
	"carriersync/internal/events"
	"carriersync/internal/model"
)

var ErrNoRules = errors.New("tracking rule set is empty")

type Settings struct {
	Rules         RuleSet `json:"rules"`
	FinalStatuses []int   `json:"final_statuses"`
	BarcodeField  string  `json:"barcode_field"`
}

func DefaultSettings() Settings {
	return Settings{
		// "2.2" comes first: an exclude match anywhere hides the code from every rule.
		Rules: RuleSet{
			{Codes: Codes{"2.2"}, StatusID: 3},
			{Codes: Codes{"2"}, Exclude: Codes{"2.2"}, StatusID: 2},
		},
		FinalStatuses: []int{2, 3},
		BarcodeField:  "barcode",
	}
}

func (s Settings) Validate() error {
	if len(s.Rules) == 0 {
		return ErrNoRules
	}
	if s.BarcodeField == "" {
		return errors.New("tracking barcode field is not set")
	}
	return nil
}

// Feed is the carrier's operation history service.
type Feed interface {
	OperationHistory(ctx context.Context, barcode string) ([]carrier.HistoryRecord, error)
}

type Store interface {
	// TrackableOrders lists orders with a tracking number and without a final status,
	// history included.
	TrackableOrders(ctx context.Context, barcodeField string, finalStatuses []int) ([]model.Order, error)
	ApplyTracking(ctx context.Context, orderID int64, entries []model.HistoryEntry, statusID *int) error
}

type RunStats struct {
	Orders  int `json:"orders"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type Tracker struct {
	// mu serializes runs started by the worker and by the HTTP trigger.
	mu        sync.Mutex
	feed      Feed
	store     Store
	publisher events.Publisher
	settings  Settings
}

func NewTracker(feed Feed, store Store, publisher events.Publisher, settings Settings) *Tracker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Tracker{feed: feed, store: store, publisher: publisher, settings: settings}
}

// Run polls the carrier for every trackable order. A failing order is logged and
// does not stop the run.
func (t *Tracker) Run(ctx context.Context) (RunStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats RunStats
	if err := t.settings.Validate(); err != nil {
		return stats, fmt.Errorf("tracking settings: %w", err)
	}

	orders, err := t.store.TrackableOrders(ctx, t.settings.BarcodeField, t.settings.FinalStatuses)
	if err != nil {
		return stats, fmt.Errorf("get trackable orders: %w", err)
	}
	stats.Orders = len(orders)
	if len(orders) > 0 {
		slog.Info("orders to track", "count", len(orders))
	}

	for i, order := range orders {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		changed, err := t.TrackOrder(ctx, order)
		if err != nil {
			stats.Failed++
			slog.Error("failed to track order", "order", order.ID, "error", err)
			continue
		}
		if changed {
			stats.Updated++
		}
		slog.Info("order tracked", "order", order.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(orders)))
	}
	return stats, nil
}

// TrackOrder reconciles one order against the carrier feed and persists the result.
func (t *Tracker) TrackOrder(ctx context.Context, order model.Order) (bool, error) {
	barcode := stripSpaces(order.Field(t.settings.BarcodeField))
	if barcode == "" {
		slog.Warn("order has no tracking number", "order", order.ID)
		return false, nil
	}

	records, err := t.feed.OperationHistory(ctx, barcode)
	if err != nil {
		return false, fmt.Errorf("get operation history for %s: %w", barcode, err)
	}

	change := Reconcile(order, t.settings.Rules.Operations(records))
	if change.Empty() {
		return false, nil
	}
	if err := t.store.ApplyTracking(ctx, order.ID, change.History, change.StatusID); err != nil {
		return false, fmt.Errorf("apply tracking: %w", err)
	}

	update := events.NewTrackingUpdate(order.ID, barcode, order.StatusID, change.StatusID, change.History)
	if err := t.publisher.Publish(ctx, update.Key(), update); err != nil {
		slog.Warn("failed to publish tracking update", "order", order.ID, "error", err)
	}
	return true, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
