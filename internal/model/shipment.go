package model

// ShipmentPayload is the flat field set the carrier expects for one backlog item.
type ShipmentPayload map[string]any

// ShipmentConfirmation is everything persisted once the carrier accepted an order.
type ShipmentConfirmation struct {
	OrderID      int64
	CarrierID    string
	Barcode      string
	BarcodeField string
	// StatusID is set only when a "sent" status has to be forced on the order.
	StatusID *int
	History  HistoryEntry
}
