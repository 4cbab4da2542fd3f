package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/model"
	"collectgame/backend/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
}

type startRequest struct {
	UserID string `json:"userId"`
	Phase  *int   `json:"phase"`
}

type scoreRequest struct {
	Points      int    `json:"points"`
	ItemType    string `json:"itemType"`
	BaseVersion int    `json:"baseVersion"`
}

type collectRequest struct {
	ItemType    string `json:"itemType"`
	BaseVersion int    `json:"baseVersion"`
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	phase := model.DefaultPhase
	if req.Phase != nil {
		phase = *req.Phase
	}

	session, apiErr := h.gameService.Start(c.Request.Context(), req.UserID, phase)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "game started", gin.H{"session": session})
}

func (h *GameHandler) UpdateScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.gameService.ApplyScore(c.Request.Context(), c.Param("sessionId"), service.ScoreInput{
		Points:      req.Points,
		ItemType:    req.ItemType,
		BaseVersion: req.BaseVersion,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "score updated", gin.H{"session": session})
}

func (h *GameHandler) Collect(c *gin.Context) {
	var req collectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.gameService.Collect(c.Request.Context(), c.Param("sessionId"), req.ItemType, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "item collected", gin.H{
		"session": result.Session,
		"award":   result.Award,
	})
}

func (h *GameHandler) UseItem(c *gin.Context) {
	result, apiErr := h.gameService.UseItem(c.Request.Context(), c.Param("sessionId"), c.Param("itemId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "item used", gin.H{
		"session":    result.Session,
		"activation": result.Activation,
		"unit":       result.Unit,
	})
}

func (h *GameHandler) End(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, apiErr := h.gameService.Complete(c.Request.Context(), c.Param("sessionId"), req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "game finished", gin.H{
		"session": result.Session,
		"user":    result.User,
	})
}

func (h *GameHandler) Pause(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, apiErr := h.gameService.Pause(c.Request.Context(), c.Param("sessionId"), req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "game paused", gin.H{"session": session})
}

func (h *GameHandler) Resume(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, apiErr := h.gameService.Resume(c.Request.Context(), c.Param("sessionId"), req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "game resumed", gin.H{"session": session})
}

func (h *GameHandler) GetActive(c *gin.Context) {
	session, apiErr := h.gameService.GetActive(c.Request.Context(), c.Param("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"session": session})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	limit := queryInt(c, "limit", model.DefaultHistoryLimit)
	sessions, apiErr := h.gameService.GetHistory(c.Request.Context(), c.Param("userId"), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"sessions": sessions})
}
