package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/middleware"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
	Nickname         string `json:"nickname"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Find user in config
	user := h.config.FindUser(req.Username)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	// Simple password check (in production, use bcrypt)
	if user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	pair, err := middleware.GenerateTokenPair(user.Username, user.Nickname, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(pair, user.Nickname))
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	claims, err := middleware.ParseToken(req.RefreshToken, h.config.Auth.JWTSecret)
	if err != nil || claims.TokenType != middleware.TokenTypeRefresh {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 만료되었습니다"})
		return
	}

	pair, err := middleware.GenerateTokenPair(claims.UserID, claims.Nickname, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(pair, claims.Nickname))
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":  middleware.GetUserID(c),
		"nickname": middleware.GetNickname(c),
	})
}

func tokenResponse(pair *middleware.TokenPair, nickname string) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt.Format(time.RFC3339),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt.Format(time.RFC3339),
		Nickname:         nickname,
	}
}
