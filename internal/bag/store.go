// Package bag is the server side of the shopping bag: line items and
// waitlist entries keyed by the visitor's bag cookie.
package bag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tailorshop/storefront/internal/db"
)

// ErrNotFound is returned when a bag has no item with the given key.
var ErrNotFound = errors.New("bag item not found")

// Item is one line in a bag.
type Item struct {
	Key       string    `json:"item_key"`
	BagID     string    `json:"bag_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides bag and waitlist persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// AddItem puts a product in the bag as a new line.
func (s *Store) AddItem(ctx context.Context, bagID, productID string) (*Item, error) {
	it := &Item{
		Key:       uuid.NewString(),
		BagID:     bagID,
		ProductID: productID,
		Quantity:  1,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bag_items (item_key, bag_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		it.Key, it.BagID, it.ProductID, it.Quantity, it.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting bag item: %w", err)
	}
	return it, nil
}

// RemoveItem deletes one line from the bag.
func (s *Store) RemoveItem(ctx context.Context, bagID, itemKey string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bag_items WHERE bag_id = ? AND item_key = ?", bagID, itemKey)
	if err != nil {
		return fmt.Errorf("deleting bag item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemKey)
	}
	return nil
}

// Items lists the bag's lines, oldest first.
func (s *Store) Items(ctx context.Context, bagID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_key, bag_id, product_id, quantity, created_at
		FROM bag_items WHERE bag_id = ? ORDER BY created_at, rowid`, bagID)
	if err != nil {
		return nil, fmt.Errorf("querying bag items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it Item
			ts string
		)
		if err := rows.Scan(&it.Key, &it.BagID, &it.ProductID, &it.Quantity, &ts); err != nil {
			return nil, fmt.Errorf("scanning bag item: %w", err)
		}
		if t, err := time.Parse(time.DateTime, ts); err == nil {
			it.CreatedAt = t
		} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
			it.CreatedAt = t
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the number of lines in the bag.
func (s *Store) Count(ctx context.Context, bagID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bag_items WHERE bag_id = ?", bagID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting bag items: %w", err)
	}
	return n, nil
}

// AddToWaitlist records interest in a product. It reports false when the
// bag was already on the product's waitlist.
func (s *Store) AddToWaitlist(ctx context.Context, bagID, productID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO waitlist_entries (bag_id, product_id) VALUES (?, ?)
		ON CONFLICT(bag_id, product_id) DO NOTHING`, bagID, productID)
	if err != nil {
		return false, fmt.Errorf("inserting waitlist entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Waitlisted reports whether the bag is on the product's waitlist.
func (s *Store) Waitlisted(ctx context.Context, bagID, productID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM waitlist_entries WHERE bag_id = ? AND product_id = ?", bagID, productID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying waitlist: %w", err)
	}
	return n > 0, nil
}
