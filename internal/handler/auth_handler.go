package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/service"
)

type AuthHandler struct {
	authService    *service.AuthService
	economyService *service.EconomyService
}

type loginRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type updateUserRequest struct {
	Fullname string `json:"fullname"`
	Phone    string `json:"phone"`
}

type bonusRequest struct {
	Value *bool `json:"value"`
}

func NewAuthHandler(authService *service.AuthService, economyService *service.EconomyService) *AuthHandler {
	return &AuthHandler{authService: authService, economyService: economyService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.authService.LoginOrRegister(c.Request.Context(), service.LoginInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	writeSuccess(c, http.StatusOK, "login successful", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	user, apiErr := h.authService.GetUser(c.Request.Context(), c.Param("userId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "", gin.H{"user": user})
}

func (h *AuthHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	user, apiErr := h.authService.UpdateUser(c.Request.Context(), c.Param("userId"), service.UpdateUserInput{
		Fullname: req.Fullname,
		Phone:    req.Phone,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "user updated", gin.H{"user": user})
}

func (h *AuthHandler) SetBonus(c *gin.Context) {
	var req bonusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		writeInvalidJSON(c)
		return
	}

	user, apiErr := h.economyService.SetBonusFlag(c.Request.Context(), c.Param("userId"), c.Param("name"), *req.Value)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeSuccess(c, http.StatusOK, "bonus updated", gin.H{"user": user})
}
