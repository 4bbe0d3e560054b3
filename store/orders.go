package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shop-service/models"
)

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.total_amount, o.shipping_address, o.tracking_number,
	       o.notes, o.cart_id, o.created_at, o.updated_at, u.email, u.first_name, u.last_name
	FROM orders o
	JOIN users u ON u.id = o.user_id`

func scanOrder(row scanner) (*models.Order, error) {
	var (
		o           models.Order
		first, last *string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress,
		&o.TrackingNumber, &o.Notes, &o.CartID, &o.CreatedAt, &o.UpdatedAt,
		&o.UserEmail, &first, &last); err != nil {
		return nil, err
	}
	o.UserName = (&models.User{FirstName: first, LastName: last}).FullName()
	o.Items = []models.OrderItem{}
	return &o, nil
}

// CreateOrder inserts the order and its items and takes the ordered quantities
// out of stock in one transaction. A product whose stock dropped below the
// requested quantity aborts everything with ErrInsufficientStock.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = newID()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, total_amount, shipping_address, cart_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.UserID, o.Status, o.TotalAmount, o.ShippingAddress, o.CartID, now, now); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range o.Items {
			item := &o.Items[i]
			if item.ID == "" {
				item.ID = newID()
			}
			item.OrderID = o.ID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, product_id, quantity, price) VALUES (?, ?, ?, ?, ?)`,
				item.ID, o.ID, item.ProductID, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			res, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
				item.Quantity, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			} else if n == 0 {
				return ErrInsufficientStock
			}
		}
		return nil
	})
}

// GetOrder loads an order with its items. A non-empty userID restricts the
// lookup to that user's orders.
func (s *Store) GetOrder(ctx context.Context, id, userID string) (*models.Order, error) {
	query := orderSelect + ` WHERE o.id = ?`
	args := []any{id}
	if userID != "" {
		query += ` AND o.user_id = ?`
		args = append(args, userID)
	}

	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}

	items, err := s.orderItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, items[o.ID]...)
	return o, nil
}

func orderWhere(f models.OrderFilter) (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, "o.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		conds = append(conds, "o.status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		conds = append(conds, "o.id LIKE ?")
		args = append(args, likePattern(f.Search))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListOrders returns one page of orders, newest first, and the total count.
func (s *Store) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	where, args := orderWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, orderSelect+where+` ORDER BY o.created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return orders, total, nil
	}

	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = append(orders[i].Items, items[orders[i].ID]...)
	}
	return orders, total, nil
}

func (s *Store) orderItems(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY oi.order_id, oi.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

// UpdateOrder applies patch to an order that is still in status from.
// ErrStatusChanged means the order moved on (or vanished) in the meantime.
func (s *Store) UpdateOrder(ctx context.Context, id string, from models.OrderStatus, patch models.OrderPatch) error {
	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.TrackingNumber != nil {
		sets = append(sets, "tracking_number = ?")
		args = append(args, *patch.TrackingNumber)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.ShippingAddress != nil {
		sets = append(sets, "shipping_address = ?")
		args = append(args, *patch.ShippingAddress)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, from)

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}

// CancelOrder marks a PENDING order CANCELLED, cancels its PENDING payments
// and puts its items back into stock in one transaction.
func (s *Store) CancelOrder(ctx context.Context, o *models.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
			models.OrderStatusCancelled, o.ID, models.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		} else if n == 0 {
			return ErrStatusChanged
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = ? WHERE order_id = ? AND status = ?`,
			models.PaymentStatusCancelled, o.ID, models.PaymentStatusPending); err != nil {
			return fmt.Errorf("cancel payments: %w", err)
		}

		for _, item := range o.Items {
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock + ? WHERE id = ?`,
				item.Quantity, item.ProductID); err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		return nil
	})
}
