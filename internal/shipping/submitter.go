package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"carriersync/internal/carrier"
	"carriersync/internal/model"
)

type BacklogAPI interface {
	CreateBacklog(ctx context.Context, payloads []model.ShipmentPayload) (*carrier.BacklogResult, error)
	Backlog(ctx context.Context, id int64) (*carrier.BacklogItem, error)
}

// OrderStore persists what the submitter learns about orders.
type OrderStore interface {
	SaveNormalizedAddress(ctx context.Context, orderID int64, addr model.NormalizedAddress) error
	SaveCarrierErrors(ctx context.Context, orderID int64, text string) error
	ConfirmShipment(ctx context.Context, c model.ShipmentConfirmation) error
}

type SubmittedOrder struct {
	OrderID   int64  `json:"order_id"`
	CarrierID string `json:"carrier_id"`
	Barcode   string `json:"barcode,omitempty"`
}

type SubmissionReport struct {
	Submitted []SubmittedOrder `json:"submitted"`
	// Rejected holds the carrier's error text per order id.
	Rejected map[int64]string `json:"rejected,omitempty"`
	// Skipped orders were not sent: no usable address, or it could not be stored.
	Skipped []int64 `json:"skipped,omitempty"`
	// BatchError is set when the whole batch could not be registered.
	BatchError string `json:"batch_error,omitempty"`
	// StoreErrors holds local persistence failures per order id. An order listed
	// here may still have been accepted by the carrier.
	StoreErrors map[int64]string `json:"store_errors,omitempty"`
}

type Submitter struct {
	normalizer *AddressNormalizer
	builder    *PayloadBuilder
	api        BacklogAPI
	store      OrderStore
	settings   Settings
	now        func() time.Time
}

func NewSubmitter(normalizer *AddressNormalizer, api BacklogAPI, store OrderStore, settings Settings) *Submitter {
	return &Submitter{
		normalizer: normalizer,
		builder:    NewPayloadBuilder(settings),
		api:        api,
		store:      store,
		settings:   settings,
		now:        time.Now,
	}
}

// Submit registers the orders with the carrier in one batch. actor is recorded as
// the author of the resulting history entries.
func (s *Submitter) Submit(ctx context.Context, actor string, orders []model.Order) (*SubmissionReport, error) {
	report := &SubmissionReport{Rejected: map[int64]string{}, StoreErrors: map[int64]string{}}

	addresses := s.normalizer.NormalizeOrders(ctx, orders)

	var (
		payloads []model.ShipmentPayload
		sending  []model.Order
	)
	for _, order := range orders {
		addr, ok := addresses[order.ID]
		if !ok {
			report.Skipped = append(report.Skipped, order.ID)
			continue
		}
		if err := s.store.SaveNormalizedAddress(ctx, order.ID, addr); err != nil {
			slog.Error("failed to save normalized address", "order", order.ID, "error", err)
			report.StoreErrors[order.ID] = fmt.Sprintf("save normalized address: %v", err)
			report.Skipped = append(report.Skipped, order.ID)
			continue
		}
		if p := s.builder.Build(order, &addr); p != nil {
			payloads = append(payloads, p)
			sending = append(sending, order)
		}
	}
	if len(payloads) == 0 {
		return report, nil
	}

	res, err := s.api.CreateBacklog(ctx, payloads)
	if err != nil {
		slog.Error("backlog submission failed", "orders", len(payloads), "error", err)
		report.BatchError = err.Error()
		return report, nil
	}

	// Error positions refer to the payload list, not to the requested orders.
	for _, e := range res.Errors {
		if e.Position < 0 || e.Position >= len(sending) {
			slog.Warn("backlog error with unknown position", "position", e.Position, "error", e.Text())
			continue
		}
		order := sending[e.Position]
		text := e.Text()
		report.Rejected[order.ID] = text
		if err := s.store.SaveCarrierErrors(ctx, order.ID, text); err != nil {
			slog.Error("failed to save carrier errors", "order", order.ID, "error", err)
			report.StoreErrors[order.ID] = fmt.Sprintf("save carrier errors: %v", err)
		}
	}

	succeeded := make([]model.Order, 0, len(sending))
	for _, order := range sending {
		if _, rejected := report.Rejected[order.ID]; !rejected {
			succeeded = append(succeeded, order)
		}
	}

	for i, id := range res.ResultIDs {
		if i >= len(succeeded) {
			slog.Warn("backlog returned more ids than accepted orders", "id", id)
			break
		}
		order := succeeded[i]
		submitted, err := s.confirm(ctx, actor, order, id)
		if err != nil {
			slog.Error("failed to confirm shipment", "order", order.ID, "carrier_id", id, "error", err)
			report.StoreErrors[order.ID] = fmt.Sprintf("confirm shipment with carrier id %d: %v", id, err)
			continue
		}
		report.Submitted = append(report.Submitted, submitted)
	}
	return report, nil
}

func (s *Submitter) confirm(ctx context.Context, actor string, order model.Order, id int64) (SubmittedOrder, error) {
	carrierID := strconv.FormatInt(id, 10)
	item, err := s.api.Backlog(ctx, id)
	if err != nil {
		return SubmittedOrder{}, err
	}

	description := "Sent to carrier with ID# " + carrierID
	if item.Barcode != "" {
		description += ", tracking number " + item.Barcode
	}
	statusID := order.StatusID
	c := model.ShipmentConfirmation{
		OrderID:      order.ID,
		CarrierID:    carrierID,
		Barcode:      item.Barcode,
		BarcodeField: s.settings.Fields.Barcode,
	}
	if s.settings.SentStatusID != 0 {
		statusID = s.settings.SentStatusID
		c.StatusID = &statusID
	}
	c.History = model.HistoryEntry{
		Actor:       actor,
		OrderID:     order.ID,
		StatusID:    statusID,
		Paid:        order.Paid,
		PostDate:    s.now().Truncate(time.Second),
		Description: description,
	}
	if err := s.store.ConfirmShipment(ctx, c); err != nil {
		return SubmittedOrder{}, err
	}
	return SubmittedOrder{OrderID: order.ID, CarrierID: carrierID, Barcode: item.Barcode}, nil
}
