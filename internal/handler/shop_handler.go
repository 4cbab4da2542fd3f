package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/service"
)

type ShopHandler struct {
	shopService *service.ShopService
}

type purchaseRequest struct {
	UserID string `json:"userId"`
	ItemID string `json:"itemId"`
}

func NewShopHandler(shopService *service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

func (h *ShopHandler) Items(c *gin.Context) {
	writeSuccess(c, http.StatusOK, "", gin.H{"items": h.shopService.Items()})
}

func (h *ShopHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.shopService.Purchase(c.Request.Context(), service.PurchaseInput{
		UserID: req.UserID,
		ItemID: req.ItemID,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "item purchased", gin.H{
		"user":          result.User,
		"purchasedItem": result.PurchasedItem.ID,
		"item":          result.PurchasedItem,
		"unit":          result.Unit,
	})
}

func (h *ShopHandler) Balance(c *gin.Context) {
	balance, apiErr := h.shopService.Balance(c.Request.Context(), c.Param("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"senacoins": balance.Senacoins})
}

func (h *ShopHandler) Inventory(c *gin.Context) {
	items, apiErr := h.shopService.Inventory(c.Request.Context(), c.Param("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"inventory": items})
}
