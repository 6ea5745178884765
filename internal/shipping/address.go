package shipping

import (
	"context"
	"log/slog"
	"strings"

	"carriersync/internal/model"
)

// AddressCleaner is the carrier's address cleansing endpoint.
type AddressCleaner interface {
	CleanAddresses(ctx context.Context, addresses []string) ([]model.NormalizedAddress, error)
}

var (
	trustedQualityCodes    = []string{"GOOD", "POSTAL_BOX", "ON_DEMAND", "UNDEF_05"}
	trustedValidationCodes = []string{"VALIDATED", "OVERRIDDEN", "CONFIRMED_MANUALLY"}
)

type AddressNormalizer struct {
	api    AddressCleaner
	fields FieldMap
}

func NewAddressNormalizer(api AddressCleaner, fields FieldMap) *AddressNormalizer {
	return &AddressNormalizer{api: api, fields: fields}
}

// Stringify joins the non-empty address components with ", ".
func (n *AddressNormalizer) Stringify(c Consignment) string {
	parts := make([]string, 0, len(n.fields.AddressComponents))
	for _, key := range n.fields.AddressComponents {
		if v := n.fields.Lookup(c, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeOrders normalizes the addresses of many orders in one call. Orders without
// an address, or without a matching response item, are absent from the result.
func (n *AddressNormalizer) NormalizeOrders(ctx context.Context, orders []model.Order) map[int64]model.NormalizedAddress {
	inputs := make([]string, 0, len(orders))
	positions := make([]int, 0, len(orders))
	for i, o := range orders {
		if s := strings.TrimSpace(n.Stringify(o)); s != "" {
			inputs = append(inputs, s)
			positions = append(positions, i)
		}
	}

	res := make(map[int64]model.NormalizedAddress, len(inputs))
	for i, addr := range n.normalize(ctx, inputs) {
		if i >= len(positions) {
			break
		}
		order := orders[positions[i]]
		addr.StringifiedInput = inputs[i]
		addr.IsCorrect = IsCorrect(addr, n.fields.Lookup(order, n.fields.PostCode))
		res[order.ID] = addr
	}
	return res
}

// NormalizeCart normalizes a single cart address. ok is false when the carrier
// returned nothing usable.
func (n *AddressNormalizer) NormalizeCart(ctx context.Context, cart model.Cart) (addr model.NormalizedAddress, ok bool) {
	input := strings.TrimSpace(n.Stringify(cart))
	if input == "" {
		return addr, false
	}
	res := n.normalize(ctx, []string{input})
	if len(res) == 0 {
		return addr, false
	}
	addr = res[0]
	addr.StringifiedInput = input
	addr.IsCorrect = IsCorrect(addr, n.fields.Lookup(cart, n.fields.PostCode))
	return addr, true
}

// normalize never fails: any carrier error means "no normalization available".
func (n *AddressNormalizer) normalize(ctx context.Context, inputs []string) []model.NormalizedAddress {
	if len(inputs) == 0 {
		return nil
	}
	res, err := n.api.CleanAddresses(ctx, inputs)
	if err != nil {
		slog.Warn("address normalization failed", "addresses", len(inputs), "error", err)
		return nil
	}
	return res
}

// IsCorrect reports whether the carrier trusts the normalized address and its postal
// index matches the one the customer declared.
func IsCorrect(addr model.NormalizedAddress, postCode string) bool {
	return contains(trustedQualityCodes, addr.QualityCode) &&
		contains(trustedValidationCodes, addr.ValidationCode) &&
		strings.TrimSpace(addr.Index) == strings.TrimSpace(postCode)
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
