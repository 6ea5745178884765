package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"carriersync/internal/model"
	"carriersync/internal/service"
)

const maxOrderBody = 1 << 20

type OrderRepository interface {
	Create(ctx context.Context, o model.Order) (int64, error)
	Get(ctx context.Context, id int64) (*model.Order, error)
}

type importOrderRequest struct {
	StatusID int               `json:"status_id"`
	Paid     bool              `json:"paid"`
	Sum      decimal.Decimal   `json:"sum"`
	Fields   map[string]string `json:"fields"`
	Items    []model.OrderItem `json:"items"`
}

// ImportOrderHandler stores an order placed by the storefront.
func ImportOrderHandler(orders OrderRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importOrderRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Sum.IsNegative() {
			http.Error(w, "sum must not be negative", http.StatusUnprocessableEntity)
			return
		}
		for _, item := range req.Items {
			if item.Quantity < 0 {
				http.Error(w, "item quantity must not be negative", http.StatusUnprocessableEntity)
				return
			}
		}

		id, err := orders.Create(r.Context(), model.Order{
			StatusID: req.StatusID,
			Paid:     req.Paid,
			Sum:      req.Sum,
			Fields:   req.Fields,
			Items:    req.Items,
		})
		if err != nil {
			slog.Error("order create failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

func GetOrderHandler(orders OrderRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := orders.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			slog.Error("order get failed", "order", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}
