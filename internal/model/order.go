package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemActor marks history entries produced by background jobs rather than an operator.
const SystemActor = "system"

type Order struct {
	ID                int64              `json:"id"`
	StatusID          int                `json:"status_id"`
	Paid              bool               `json:"paid"`
	Sum               decimal.Decimal    `json:"sum"`
	Fields            map[string]string  `json:"fields"`
	Items             []OrderItem        `json:"items"`
	History           []HistoryEntry     `json:"history,omitempty"`
	NormalizedAddress *NormalizedAddress `json:"normalized_address,omitempty"`
	CarrierID         string             `json:"carrier_id,omitempty"`
	CarrierErrors     string             `json:"carrier_errors,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

func (o Order) Field(name string) string { return o.Fields[name] }

func (o Order) LineItems() []OrderItem { return o.Items }

type OrderItem struct {
	MaterialID string            `json:"material_id"`
	Quantity   int               `json:"quantity"`
	Attrs      map[string]string `json:"attrs,omitempty"`
}

func (i OrderItem) Attr(name string) string { return i.Attrs[name] }

// Cart is a not yet placed order, used for delivery estimates only.
type Cart struct {
	Sum    decimal.Decimal   `json:"sum"`
	Fields map[string]string `json:"fields"`
	Items  []OrderItem       `json:"items"`
}

func (c Cart) Field(name string) string { return c.Fields[name] }

func (c Cart) LineItems() []OrderItem { return c.Items }

type HistoryEntry struct {
	ID          int64     `json:"id"`
	Actor       string    `json:"actor"`
	OrderID     int64     `json:"order_id"`
	StatusID    int       `json:"status_id"`
	Paid        bool      `json:"paid"`
	PostDate    time.Time `json:"post_date"`
	Description string    `json:"description"`
}
