package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tailorshop/storefront/internal/db"
)

// Store provides CRUD operations for orders.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create validates and inserts o, filling in its id and timestamps.
func (s *Store) Create(ctx context.Context, o *Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO orders ("+strings.Join(columns, ", ")+") VALUES ("+placeholders+")",
		o.fields()...,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading order id: %w", err)
	}

	created, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

// Get retrieves a single order.
func (s *Store) Get(ctx context.Context, id int64) (*Order, error) {
	row := s.db.QueryRowContext(ctx, selectOrders+" WHERE id = ?", id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	return o, nil
}

// List returns orders, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := selectOrders + " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

// Update validates o and overwrites the stored order with the same id.
func (s *Store) Update(ctx context.Context, o *Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	args := append(o.fields(), o.ID)
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET "+strings.Join(sets, ", ")+", updated_at = datetime('now') WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, o.ID)
	}

	updated, err := s.Get(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = *updated
	return nil
}

// Delete removes an order.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored orders.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

var selectOrders = "SELECT id, " + strings.Join(columns, ", ") + ", created_at, updated_at FROM orders"

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(sc scanner) (*Order, error) {
	var (
		o                Order
		created, updated string
	)
	dest := append([]any{&o.ID}, o.fields()...)
	dest = append(dest, &created, &updated)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)
	return &o, nil
}

func parseTime(ts string) time.Time {
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Time{}
}
