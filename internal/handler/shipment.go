package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"carriersync/internal/model"
	"carriersync/internal/mw"
	"carriersync/internal/shipping"
)

type OrderLister interface {
	List(ctx context.Context, ids []int64) ([]model.Order, error)
}

type ShipmentSubmitter interface {
	Submit(ctx context.Context, actor string, orders []model.Order) (*shipping.SubmissionReport, error)
}

type submitRequest struct {
	OrderIDs []int64 `json:"order_ids"`
}

type submitResponse struct {
	*shipping.SubmissionReport
	NotFound []int64 `json:"not_found,omitempty"`
}

// SubmitShipmentsHandler registers the requested orders with the carrier in one batch.
func SubmitShipmentsHandler(orders OrderLister, submitter ShipmentSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if len(req.OrderIDs) == 0 {
			http.Error(w, "order_ids required", http.StatusBadRequest)
			return
		}

		found, err := orders.List(r.Context(), req.OrderIDs)
		if err != nil {
			slog.Error("load orders failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		report, err := submitter.Submit(r.Context(), mw.OperatorID(r.Context()), found)
		if err != nil {
			slog.Error("shipment submission failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, submitResponse{
			SubmissionReport: report,
			NotFound:         missing(req.OrderIDs, found),
		})
	}
}

func missing(ids []int64, found []model.Order) []int64 {
	seen := make(map[int64]bool, len(found))
	for _, o := range found {
		seen[o.ID] = true
	}
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}
