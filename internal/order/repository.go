package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByAccount(ctx context.Context, accountID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount, status, created_at, updated_at
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Amount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = Status(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Order, error) {
	var o Order
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, amount, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.AccountID, &o.Amount, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("query order by id: %w", err)
	}

	o.Status = Status(status)
	return o, nil
}

func (r *Repository) Create(ctx context.Context, accountID string, input Input) (Order, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Order{}, fmt.Errorf("generate order id: %w", err)
	}

	now := time.Now().UTC()
	o := Order{
		ID:        id.String(),
		AccountID: accountID,
		Amount:    input.Amount,
		Status:    input.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, account_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, o.ID, o.AccountID, o.Amount, string(o.Status), now)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	return o, nil
}

func (r *Repository) Update(ctx context.Context, id string, input Input) (Order, error) {
	var o Order
	var status string

	err := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET amount = $2, status = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, account_id, amount, status, created_at, updated_at
	`, id, input.Amount, string(input.Status), time.Now().UTC()).
		Scan(&o.ID, &o.AccountID, &o.Amount, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("update order: %w", err)
	}

	o.Status = Status(status)
	return o, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
