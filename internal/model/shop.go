package model

import "time"

type ShopItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}

// InventoryItem is one purchased, single-use consumable.
type InventoryItem struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	ItemID      string     `json:"itemId"`
	PurchasedAt time.Time  `json:"purchasedAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	SessionID   *string    `json:"sessionId,omitempty"`
}

func (i *InventoryItem) Used() bool {
	return i.UsedAt != nil
}
