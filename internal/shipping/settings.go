package shipping

import (
	"strings"

	"carriersync/internal/model"
)

// Consignment is anything that can be measured and shipped: a placed order or a cart.
type Consignment interface {
	Field(name string) string
	LineItems() []model.OrderItem
}

// FieldMap names the order fields that hold recipient data.
type FieldMap struct {
	AddressComponents []string `json:"address_components"`
	NameComponents    []string `json:"name_components"`
	PostCode          string   `json:"post_code"`
	LastName          string   `json:"last_name"`
	FirstName         string   `json:"first_name"`
	SecondName        string   `json:"second_name"`
	Phone             string   `json:"phone"`
	Barcode           string   `json:"barcode"`
}

// Lookup resolves a configured field name against a consignment. An unset name
// resolves to an empty value.
func (m FieldMap) Lookup(c Consignment, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(c.Field(name))
}

// Measure configures one physical quantity: where to read it on the order and on an
// item, the conversion ratio and the fallbacks. Weight is in kilograms, dimensions in
// millimetres.
type Measure struct {
	Field       string  `json:"field"`
	ItemField   string  `json:"item_field"`
	Ratio       float64 `json:"ratio"`
	Default     float64 `json:"default"`
	DefaultItem float64 `json:"default_item"`
}

type Settings struct {
	Fields FieldMap `json:"fields"`
	Weight Measure  `json:"weight"`
	Length Measure  `json:"length"`
	Width  Measure  `json:"width"`
	Height Measure  `json:"height"`

	// PredefinedOptions is the table of service flags the payload and tariff
	// builders pick their whitelisted keys from.
	PredefinedOptions map[string]any `json:"predefined_options"`
	// OverrideData is merged into every shipment payload last.
	OverrideData map[string]any `json:"override_data"`

	SentStatusID         int     `json:"sent_status_id"`
	DefaultDeliveryPrice float64 `json:"default_delivery_price"`
	PriceRatio           float64 `json:"price_ratio"`
}

func DefaultSettings() Settings {
	return Settings{
		Fields: FieldMap{
			AddressComponents: []string{"post_code", "region", "city", "street", "house", "apartment"},
			NameComponents:    []string{"last_name", "first_name", "second_name"},
			PostCode:          "post_code",
			LastName:          "last_name",
			FirstName:         "first_name",
			SecondName:        "second_name",
			Phone:             "phone",
			Barcode:           "barcode",
		},
		Weight: Measure{Field: "weight", ItemField: "weight", Ratio: 1, Default: 1, DefaultItem: 0.1},
		Length: Measure{Field: "length", ItemField: "length", Ratio: 1, Default: 200, DefaultItem: 100},
		Width:  Measure{Field: "width", ItemField: "width", Ratio: 1, Default: 200, DefaultItem: 100},
		Height: Measure{Field: "height", ItemField: "height", Ratio: 1, Default: 200, DefaultItem: 100},
		PredefinedOptions: map[string]any{
			"completeness-checking":  false,
			"contents-checking":      true,
			"courier":                false,
			"entries-type":           "GIFT",
			"fragile":                false,
			"index-from":             nil,
			"inventory":              true,
			"mail-category":          "WITH_DECLARED_VALUE",
			"mail-direct":            643,
			"mail-type":              "POSTAL_PARCEL",
			"manual-address-input":   false,
			"notice-payment-method":  "CASHLESS",
			"payment-method":         "CASHLESS",
			"sms-notice-recipient":   0,
			"transport-type":         "COMBINED",
			"vsd":                    true,
			"with-electronic-notice": true,
			"with-order-of-notice":   false,
			"with-simple-notice":     false,
		},
		OverrideData:         map[string]any{},
		DefaultDeliveryPrice: 200,
		PriceRatio:           1,
	}
}

// pick copies the whitelisted keys present in the predefined options table.
func (s Settings) pick(keys []string) map[string]any {
	res := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.PredefinedOptions[k]; ok {
			res[k] = v
		}
	}
	return res
}
