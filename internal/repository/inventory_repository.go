package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collectgame/backend/internal/model"
)

type InventoryRepository struct {
	db DBTX
}

func NewInventoryRepository(db DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = `id, user_id, item_id, purchased_at, used_at, session_id`

func (r *InventoryRepository) Insert(ctx context.Context, item *model.InventoryItem) error {
	var sessionID interface{}
	if item.SessionID != nil {
		sessionID = *item.SessionID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO inventory_items (`+inventoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.ItemID,
		formatTime(item.PurchasedAt),
		formatNullableTime(item.UsedAt),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

// ListUnused returns a user's unconsumed units, oldest purchase first.
func (r *InventoryRepository) ListUnused(ctx context.Context, userID string) ([]model.InventoryItem, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory_items
		 WHERE user_id = ? AND used_at IS NULL
		 ORDER BY purchased_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	items := make([]model.InventoryItem, 0)
	for rows.Next() {
		item, scanErr := scanInventoryItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

// FirstUnused returns the oldest unconsumed unit of itemID.
func (r *InventoryRepository) FirstUnused(ctx context.Context, userID, itemID string) (*model.InventoryItem, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+inventoryColumns+`
		 FROM inventory_items
		 WHERE user_id = ? AND item_id = ? AND used_at IS NULL
		 ORDER BY purchased_at, id
		 LIMIT 1`,
		userID,
		itemID,
	)
	return scanInventoryItem(row)
}

// MarkUsed consumes a unit. A unit that is already used yields ErrConflict.
func (r *InventoryRepository) MarkUsed(ctx context.Context, item *model.InventoryItem, sessionID string, usedAt time.Time) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE inventory_items SET used_at = ?, session_id = ? WHERE id = ? AND used_at IS NULL`,
		formatTime(usedAt),
		sessionID,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("mark inventory item used: %w", err)
	}
	if err := expectOneRow(result, "mark inventory item used"); err != nil {
		return err
	}
	item.UsedAt = &usedAt
	item.SessionID = &sessionID
	return nil
}

func scanInventoryItem(s scanner) (*model.InventoryItem, error) {
	var item model.InventoryItem
	var purchasedAt string
	var usedAt, sessionID sql.NullString
	err := s.Scan(&item.ID, &item.UserID, &item.ItemID, &purchasedAt, &usedAt, &sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan inventory item: %w", err)
	}

	if item.PurchasedAt, err = parseTime(purchasedAt); err != nil {
		return nil, fmt.Errorf("parse inventory purchased_at: %w", err)
	}
	if item.UsedAt, err = parseNullableTime(usedAt, "inventory used_at"); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		value := sessionID.String
		item.SessionID = &value
	}
	return &item, nil
}
