package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"carriersync/internal/model"
	"carriersync/internal/shipping"
)

type DeliveryEstimator interface {
	Estimate(ctx context.Context, cart model.Cart) shipping.Estimate
	CustomerPrice(cartSum, delivery decimal.Decimal) decimal.Decimal
}

type calculatorResponse struct {
	Sum      decimal.Decimal `json:"sum"`
	Delivery decimal.Decimal `json:"delivery"`
	MinDays  *int            `json:"min_days,omitempty"`
	MaxDays  *int            `json:"max_days,omitempty"`
}

// CalculatorHandler quotes delivery for a cart. It always answers: carrier failures
// fall back to the default delivery price.
func CalculatorHandler(estimator DeliveryEstimator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cart model.Cart
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(&cart); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		est := estimator.Estimate(r.Context(), cart)
		writeJSON(w, http.StatusOK, calculatorResponse{
			Sum:      estimator.CustomerPrice(cart.Sum, est.Sum),
			Delivery: est.Sum,
			MinDays:  est.MinDays,
			MaxDays:  est.MaxDays,
		})
	}
}
