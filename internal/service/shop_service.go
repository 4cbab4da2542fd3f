package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/game"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

type ShopService struct {
	store *repository.Store
	clock Clock
}

type PurchaseInput struct {
	UserID string
	ItemID string
}

type PurchaseResult struct {
	User          *model.UserView     `json:"user"`
	PurchasedItem model.ShopItem      `json:"purchasedItem"`
	Unit          model.InventoryItem `json:"unit"`
}

type Balance struct {
	Senacoins int `json:"senacoins"`
}

func NewShopService(store *repository.Store, opts ...Option) *ShopService {
	o := buildOptions(opts)
	return &ShopService{store: store, clock: o.clock}
}

func (s *ShopService) Items() []model.ShopItem {
	return game.Catalog()
}

// Purchase debits the item price and files one unused unit for the user.
func (s *ShopService) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, *apperrors.APIError) {
	userID := strings.TrimSpace(input.UserID)
	itemID := strings.TrimSpace(input.ItemID)
	if userID == "" || itemID == "" {
		return nil, apperrors.Validation("userId and itemId are required")
	}

	now := s.clock()
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := getUser(ctx, tx.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	item, ok := game.FindItem(itemID)
	if !ok {
		return nil, apperrors.Validation("unknown item")
	}

	if apiErr := spendSenacoins(user, item.Price); apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Users.Update(ctx, user); err != nil {
		return nil, writeError("failed to update balance", err)
	}

	unit := model.InventoryItem{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		ItemID:      item.ID,
		PurchasedAt: now,
	}
	if err := tx.Inventory.Insert(ctx, &unit); err != nil {
		return nil, apperrors.Storage("failed to store purchased item", err)
	}

	view, apiErr := loadUserView(ctx, tx.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage("failed to commit transaction", err)
	}
	return &PurchaseResult{User: view, PurchasedItem: item, Unit: unit}, nil
}

func (s *ShopService) Balance(ctx context.Context, userID string) (*Balance, *apperrors.APIError) {
	user, apiErr := getUser(ctx, s.store.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	return &Balance{Senacoins: user.Senacoins}, nil
}

// Inventory lists the user's unused units, oldest first.
func (s *ShopService) Inventory(ctx context.Context, userID string) ([]model.InventoryItem, *apperrors.APIError) {
	if _, apiErr := getUser(ctx, s.store.Users, userID); apiErr != nil {
		return nil, apiErr
	}
	items, err := s.store.Inventory.ListUnused(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage("failed to load inventory", err)
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return items, nil
}
