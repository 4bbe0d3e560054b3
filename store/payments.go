package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shop-service/models"
)

const paymentColumns = `id, order_id, user_id, amount, currency, status, payment_method, transaction_id, created_at, updated_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.PaymentMethod, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.Currency, p.Status, p.PaymentMethod, p.TransactionID, now, now)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) HasCompletedPayment(ctx context.Context, orderID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE order_id = ? AND status = ?`,
		orderID, models.PaymentStatusCompleted).Scan(&n); err != nil {
		return false, fmt.Errorf("check completed payment: %w", err)
	}
	return n > 0, nil
}

// GetPaymentByTransaction finds the payment a user created for an order with
// the given processor transaction id.
func (s *Store) GetPaymentByTransaction(ctx context.Context, orderID, userID, transactionID string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? AND user_id = ? AND transaction_id = ?`,
		orderID, userID, transactionID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, id, userID string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetPaymentByOrder returns the most relevant payment of an order: a completed
// one if any, otherwise the newest.
func (s *Store) GetPaymentByOrder(ctx context.Context, orderID, userID string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? AND user_id = ?
		 ORDER BY status = 'COMPLETED' DESC, created_at DESC LIMIT 1`, orderID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, userID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// CompletePayment marks a PENDING payment COMPLETED and moves its PENDING
// order to PROCESSING in one transaction. If either row is no longer in the expected
// state nothing is written and ErrStatusChanged is returned.
func (s *Store) CompletePayment(ctx context.Context, paymentID, orderID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
			models.PaymentStatusCompleted, paymentID, models.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		} else if n == 0 {
			return ErrStatusChanged
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
			models.OrderStatusProcessing, orderID, models.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("advance order: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("advance order: %w", err)
		} else if n == 0 {
			return ErrStatusChanged
		}
		return nil
	})
}

// FailPayment marks a PENDING payment FAILED.
func (s *Store) FailPayment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
		models.PaymentStatusFailed, id, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("fail payment: %w", err)
	} else if n == 0 {
		return ErrStatusChanged
	}
	return nil
}
