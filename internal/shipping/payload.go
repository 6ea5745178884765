package shipping

import (
	"strconv"
	"strings"

	"carriersync/internal/model"
)

const (
	MailCategoryOrdered = "ORDERED"
	MailCategoryCOD     = "WITH_DECLARED_VALUE_AND_CASH_ON_DELIVERY"
)

var payloadOptions = []string{
	"completeness-checking",
	"courier",
	"fragile",
	"mail-direct",
	"mail-type",
	"manual-address-input",
	"payment-method",
	"transport-type",
	"with-order-of-notice",
	"with-simple-notice",
}

type PayloadBuilder struct {
	settings Settings
}

func NewPayloadBuilder(settings Settings) *PayloadBuilder {
	return &PayloadBuilder{settings: settings}
}

// Build maps an order onto a backlog item. It returns nil when there is no
// normalized address to ship to.
func (b *PayloadBuilder) Build(order model.Order, addr *model.NormalizedAddress) model.ShipmentPayload {
	if addr == nil {
		return nil
	}
	f := b.settings.Fields
	id := strconv.FormatInt(order.ID, 10)

	res := model.ShipmentPayload(b.settings.pick(payloadOptions))
	res["comment"] = id
	res["order-num"] = id
	res["given-name"] = f.Lookup(order, f.FirstName)
	res["surname"] = f.Lookup(order, f.LastName)
	res["recipient-name"] = b.recipientName(order)
	res["mass"] = Grams(b.settings.ResolveWeight(order))
	if v := f.Lookup(order, f.SecondName); v != "" {
		res["middle-name"] = v
	}

	for _, key := range model.DestinationComponents {
		if v := strings.TrimSpace(addr.Component(key)); v != "" {
			res[key+"-to"] = v
		}
	}
	if idx, ok := res["index-to"].(string); ok {
		res["str-index-to"] = idx
		if n, err := strconv.Atoi(idx); err == nil {
			res["index-to"] = n
		} else {
			delete(res, "index-to")
		}
	}

	if order.Paid {
		res["mail-category"] = MailCategoryOrdered
	} else {
		cod := MinorUnits(order.Sum)
		res["mail-category"] = MailCategoryCOD
		res["insr-value"] = cod
		res["payment"] = cod
	}

	if phone := digits(f.Lookup(order, f.Phone)); len(phone) == 10 {
		if n, err := strconv.ParseInt("7"+phone, 10, 64); err == nil {
			res["tel-address"] = n
		}
	}

	for k, v := range b.settings.OverrideData {
		res[k] = v
	}
	return res
}

func (b *PayloadBuilder) recipientName(order model.Order) string {
	f := b.settings.Fields
	parts := make([]string, 0, len(f.NameComponents))
	for _, key := range f.NameComponents {
		if v := f.Lookup(order, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
