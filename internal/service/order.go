package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"carriersync/internal/model"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderService struct {
	db *sql.DB
}

func NewOrderService(db *sql.DB) *OrderService {
	return &OrderService{db: db}
}

// Create stores an order with its items and returns the new id.
func (s *OrderService) Create(ctx context.Context, o model.Order) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	fields, err := json.Marshal(nonNil(o.Fields))
	if err != nil {
		return 0, fmt.Errorf("encode fields: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (status_id, paid, sum, fields) VALUES ($1, $2, $3, $4) RETURNING id`,
		o.StatusID, o.Paid, o.Sum, string(fields),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		attrs, err := json.Marshal(nonNil(item.Attrs))
		if err != nil {
			return 0, fmt.Errorf("encode item attrs: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, material_id, quantity, attrs) VALUES ($1, $2, $3, $4)`,
			id, item.MaterialID, item.Quantity, string(attrs),
		)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (*model.Order, error) {
	orders, err := s.List(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// List loads orders with items and history, ordered by id.
func (s *OrderService) List(ctx context.Context, ids []int64) ([]model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status_id, paid, sum, fields, normalized_address, carrier_id, carrier_errors, created_at
		FROM orders
		WHERE id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[int64]int)
	for rows.Next() {
		var (
			o          model.Order
			fields     []byte
			normalized []byte
		)
		if err := rows.Scan(&o.ID, &o.StatusID, &o.Paid, &o.Sum, &fields, &normalized, &o.CarrierID, &o.CarrierErrors, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(fields, &o.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of order %d: %w", o.ID, err)
		}
		if len(normalized) > 0 {
			var addr model.NormalizedAddress
			if err := json.Unmarshal(normalized, &addr); err != nil {
				return nil, fmt.Errorf("decode address of order %d: %w", o.ID, err)
			}
			o.NormalizedAddress = &addr
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if err := s.attachItems(ctx, orders, index, ids); err != nil {
		return nil, err
	}
	if err := s.attachHistory(ctx, orders, index, ids); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []model.Order, index map[int64]int, ids []int64) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, material_id, quantity, attrs
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    model.OrderItem
			attrs   []byte
		)
		if err := rows.Scan(&orderID, &item.MaterialID, &item.Quantity, &attrs); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if err := json.Unmarshal(attrs, &item.Attrs); err != nil {
			return fmt.Errorf("decode item attrs of order %d: %w", orderID, err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}

func (s *OrderService) attachHistory(ctx context.Context, orders []model.Order, index map[int64]int, ids []int64) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, actor, status_id, paid, post_date, description
		FROM order_history
		WHERE order_id = ANY($1)
		ORDER BY post_date, id
	`, ids)
	if err != nil {
		return fmt.Errorf("query order history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Actor, &h.StatusID, &h.Paid, &h.PostDate, &h.Description); err != nil {
			return fmt.Errorf("scan history entry: %w", err)
		}
		if i, ok := index[h.OrderID]; ok {
			orders[i].History = append(orders[i].History, h)
		}
	}
	return rows.Err()
}

// TrackableOrders returns orders carrying a tracking number that never reached a
// final status. History is checked too because an operator may have changed the
// status by hand after it was final.
func (s *OrderService) TrackableOrders(ctx context.Context, barcodeField string, finalStatuses []int) ([]model.Order, error) {
	finals := make([]int64, 0, len(finalStatuses))
	for _, st := range finalStatuses {
		finals = append(finals, int64(st))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id
		FROM orders o
		WHERE COALESCE(o.fields->>$1, '') <> ''
		  AND NOT (o.status_id = ANY($2))
		  AND NOT EXISTS (
		      SELECT 1 FROM order_history h
		      WHERE h.order_id = o.id AND h.status_id = ANY($2)
		  )
		ORDER BY o.id
	`, barcodeField, finals)
	if err != nil {
		return nil, fmt.Errorf("query trackable orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return s.List(ctx, ids)
}

// ApplyTracking appends history entries in the given order and updates the status,
// atomically.
func (s *OrderService) ApplyTracking(ctx context.Context, orderID int64, entries []model.HistoryEntry, statusID *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, h := range entries {
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}
	if statusID != nil {
		if err := updateStatus(ctx, tx, orderID, *statusID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *OrderService) SaveNormalizedAddress(ctx context.Context, orderID int64, addr model.NormalizedAddress) error {
	raw, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE orders SET normalized_address = $1 WHERE id = $2`, string(raw), orderID)
	if err != nil {
		return fmt.Errorf("update normalized address: %w", err)
	}
	return nil
}

func (s *OrderService) SaveCarrierErrors(ctx context.Context, orderID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE orders SET carrier_errors = $1 WHERE id = $2`, text, orderID)
	if err != nil {
		return fmt.Errorf("update carrier errors: %w", err)
	}
	return nil
}

// ConfirmShipment records an accepted shipment: history entry, optional status,
// carrier id and tracking number.
func (s *OrderService) ConfirmShipment(ctx context.Context, c model.ShipmentConfirmation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertHistory(ctx, tx, c.History); err != nil {
		return err
	}
	if c.StatusID != nil {
		if err := updateStatus(ctx, tx, c.OrderID, *c.StatusID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET carrier_id = $1, carrier_errors = '' WHERE id = $2`, c.CarrierID, c.OrderID); err != nil {
		return fmt.Errorf("update carrier id: %w", err)
	}
	if c.Barcode != "" && c.BarcodeField != "" {
		_, err := tx.ExecContext(ctx,
			`UPDATE orders SET fields = jsonb_set(fields, ARRAY[$1::text], to_jsonb($2::text)) WHERE id = $3`,
			c.BarcodeField, c.Barcode, c.OrderID,
		)
		if err != nil {
			return fmt.Errorf("update tracking number: %w", err)
		}
	}
	return tx.Commit()
}

func insertHistory(ctx context.Context, tx *sql.Tx, h model.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_history (order_id, actor, status_id, paid, post_date, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, h.OrderID, h.Actor, h.StatusID, h.Paid, h.PostDate, h.Description)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func updateStatus(ctx context.Context, tx *sql.Tx, orderID int64, statusID int) error {
	res, err := tx.ExecContext(ctx, `UPDATE orders SET status_id = $1 WHERE id = $2`, statusID, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
