package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"carriersync/internal/model"
)

type BacklogErrorCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type BacklogError struct {
	Position   int                `json:"position"`
	ErrorCodes []BacklogErrorCode `json:"error-codes"`
}

// Text joins the descriptions of all error codes, one per line.
func (e BacklogError) Text() string {
	descriptions := make([]string, 0, len(e.ErrorCodes))
	for _, c := range e.ErrorCodes {
		descriptions = append(descriptions, c.Description)
	}
	return strings.Join(descriptions, "\n")
}

type BacklogResult struct {
	ResultIDs []int64        `json:"result-ids"`
	Errors    []BacklogError `json:"errors"`
}

type BacklogItem struct {
	ID      int64  `json:"id"`
	Barcode string `json:"barcode"`
}

type DeliveryTime struct {
	MinDays int `json:"min-days"`
	MaxDays int `json:"max-days"`
}

type TariffResult struct {
	TotalRate    int64         `json:"total-rate"`
	DeliveryTime *DeliveryTime `json:"delivery-time"`
}

type cleanAddressRequest struct {
	ID              string `json:"id"`
	OriginalAddress string `json:"original-address"`
}

// CleanAddresses normalizes free-text addresses, one request item per address.
func (c *Client) CleanAddresses(ctx context.Context, addresses []string) ([]model.NormalizedAddress, error) {
	req := make([]cleanAddressRequest, 0, len(addresses))
	for i, a := range addresses {
		req = append(req, cleanAddressRequest{
			ID:              fmt.Sprintf("adr %d", i),
			OriginalAddress: strings.TrimSpace(a),
		})
	}
	raw, err := c.Call(ctx, "clean/address", req, http.MethodPost)
	if err != nil {
		return nil, fmt.Errorf("clean address: %w", err)
	}
	var res []model.NormalizedAddress
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode clean address: %w", err)
	}
	return res, nil
}

// CreateBacklog registers a batch of shipments.
func (c *Client) CreateBacklog(ctx context.Context, payloads []model.ShipmentPayload) (*BacklogResult, error) {
	raw, err := c.Call(ctx, "user/backlog", payloads, http.MethodPut)
	if err != nil {
		return nil, fmt.Errorf("create backlog: %w", err)
	}
	var res BacklogResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode backlog: %w", err)
	}
	return &res, nil
}

// Backlog fetches one registered shipment.
func (c *Client) Backlog(ctx context.Context, id int64) (*BacklogItem, error) {
	raw, err := c.Call(ctx, fmt.Sprintf("backlog/%d", id), nil, http.MethodGet)
	if err != nil {
		return nil, fmt.Errorf("get backlog %d: %w", id, err)
	}
	var res BacklogItem
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode backlog item: %w", err)
	}
	return &res, nil
}

func (c *Client) Tariff(ctx context.Context, query map[string]any) (*TariffResult, error) {
	raw, err := c.Call(ctx, "tariff", query, http.MethodPost)
	if err != nil {
		return nil, fmt.Errorf("tariff: %w", err)
	}
	var res TariffResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode tariff: %w", err)
	}
	return &res, nil
}
