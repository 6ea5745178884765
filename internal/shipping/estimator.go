package shipping

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"carriersync/internal/carrier"
	"carriersync/internal/model"
)

type TariffAPI interface {
	Tariff(ctx context.Context, query map[string]any) (*carrier.TariffResult, error)
}

var tariffOptions = []string{
	"completeness-checking",
	"contents-checking",
	"courier",
	"entries-type",
	"fragile",
	"index-from",
	"inventory",
	"mail-category",
	"mail-direct",
	"mail-type",
	"notice-payment-method",
	"payment-method",
	"sms-notice-recipient",
	"transport-type",
	"vsd",
	"with-electronic-notice",
	"with-order-of-notice",
	"with-simple-notice",
}

// Estimate is a delivery price in major currency units with an optional lead time.
type Estimate struct {
	Sum     decimal.Decimal
	MinDays *int
	MaxDays *int
}

type CostEstimator struct {
	normalizer *AddressNormalizer
	api        TariffAPI
	settings   Settings
}

func NewCostEstimator(normalizer *AddressNormalizer, api TariffAPI, settings Settings) *CostEstimator {
	return &CostEstimator{normalizer: normalizer, api: api, settings: settings}
}

// Query builds the tariff request for a cart delivered to postal index indexTo.
func (e *CostEstimator) Query(cart model.Cart, indexTo string) map[string]any {
	q := e.settings.pick(tariffOptions)
	if v, ok := q["index-from"]; ok && isBlank(v) {
		delete(q, "index-from")
	}
	length, width, height := e.settings.Dimensions(cart)
	q["mass"] = Grams(e.settings.ResolveWeight(cart))
	q["dimension"] = map[string]int64{
		"length": length,
		"width":  width,
		"height": height,
	}
	q["dimension-type"] = string(Classify(length, width, height))
	q["declared-value"] = MinorUnits(cart.Sum)
	q["index-to"] = indexTo
	return q
}

// Estimate never fails: without a normalized address or a tariff the configured
// default price is returned.
func (e *CostEstimator) Estimate(ctx context.Context, cart model.Cart) Estimate {
	fallback := Estimate{Sum: decimal.NewFromFloat(e.settings.DefaultDeliveryPrice)}

	addr, ok := e.normalizer.NormalizeCart(ctx, cart)
	if !ok || addr.Index == "" {
		slog.Warn("cart address not normalized, using default delivery price")
		return fallback
	}

	res, err := e.api.Tariff(ctx, e.Query(cart, addr.Index))
	if err != nil {
		slog.Warn("tariff request failed, using default delivery price", "error", err)
		return fallback
	}

	est := fallback
	if res.TotalRate > 0 {
		est.Sum = decimal.New(res.TotalRate, -2).Ceil()
	}
	if dt := res.DeliveryTime; dt != nil {
		if dt.MinDays > 0 {
			v := dt.MinDays
			est.MinDays = &v
		}
		if dt.MaxDays > 0 {
			v := dt.MaxDays
			est.MaxDays = &v
		}
	}
	return est
}

// CustomerPrice applies the configured price ratio: the delivery price plus the
// ratio's surplus over the whole purchase.
func (e *CostEstimator) CustomerPrice(cartSum, delivery decimal.Decimal) decimal.Decimal {
	ratio := decimal.NewFromFloat(e.settings.PriceRatio)
	return delivery.Add(cartSum.Add(delivery).Mul(ratio.Sub(decimal.NewFromInt(1))))
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	}
	return false
}
