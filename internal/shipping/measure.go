package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Axis int

const (
	Length Axis = iota
	Width
	Height
)

func (s Settings) measure(a Axis) Measure {
	switch a {
	case Width:
		return s.Width
	case Height:
		return s.Height
	}
	return s.Length
}

// ResolveWeight resolves the shippable weight in kilograms, ratio applied.
func (s Settings) ResolveWeight(c Consignment) decimal.Decimal {
	m := s.Weight
	res := parseAmount(s.Fields.Lookup(c, m.Field))
	if !res.IsPositive() {
		res = decimal.Zero
		defaultItem := decimal.NewFromFloat(m.DefaultItem)
		for _, item := range c.LineItems() {
			w := decimal.Max(parseAmount(item.Attr(m.ItemField)), defaultItem)
			res = res.Add(w.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if res.IsZero() {
			res = decimal.NewFromFloat(m.Default)
		}
	}
	return res.Mul(decimal.NewFromFloat(m.Ratio))
}

// ResolveDimension resolves one dimension in millimetres, ratio applied.
// Only a single-item consignment borrows the item's size; anything else without an
// explicit value uses the configured default.
func (s Settings) ResolveDimension(c Consignment, a Axis) decimal.Decimal {
	m := s.measure(a)
	res := parseAmount(s.Fields.Lookup(c, m.Field))
	if !res.IsPositive() {
		res = decimal.Zero
		if items := c.LineItems(); len(items) == 1 {
			res = parseAmount(items[0].Attr(m.ItemField))
			if !res.IsPositive() {
				res = decimal.NewFromFloat(m.DefaultItem)
			}
		}
		if !res.IsPositive() {
			res = decimal.NewFromFloat(m.Default)
		}
	}
	return res.Mul(decimal.NewFromFloat(m.Ratio))
}

// Dimensions resolves length, width and height as whole millimetres.
func (s Settings) Dimensions(c Consignment) (length, width, height int64) {
	return ceilPositive(s.ResolveDimension(c, Length)),
		ceilPositive(s.ResolveDimension(c, Width)),
		ceilPositive(s.ResolveDimension(c, Height))
}

// Grams converts kilograms to whole grams, rounding up.
func Grams(kg decimal.Decimal) int64 {
	return ceilPositive(kg.Mul(decimal.NewFromInt(1000)))
}

// MinorUnits converts a major currency amount to minor units, rounding up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Ceil().IntPart()
}

func ceilPositive(d decimal.Decimal) int64 {
	v := d.Ceil().IntPart()
	if v < 1 {
		return 1
	}
	return v
}

func parseAmount(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
