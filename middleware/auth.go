package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	Nickname  string `json:"nickname"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is an access token plus its refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// GenerateTokenPair issues a fresh access/refresh token pair for a user.
func GenerateTokenPair(userID, nickname string, cfg *config.AuthConfig) (*TokenPair, error) {
	now := time.Now()
	accessExpires := now.Add(time.Duration(cfg.AccessExpireHours) * time.Hour)
	refreshExpires := now.Add(time.Duration(cfg.RefreshExpireHours) * time.Hour)

	access, err := signToken(userID, nickname, TokenTypeAccess, accessExpires, cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(userID, nickname, TokenTypeRefresh, refreshExpires, cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func signToken(userID, nickname, tokenType string, expiresAt time.Time, secret string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Nickname:  nickname,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware validates the Bearer access token and extracts user info
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1], cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Refresh tokens are only good for the refresh endpoint.
		if claims.TokenType != TokenTypeAccess {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Store user info in context
		c.Set("user_id", claims.UserID)
		c.Set("nickname", claims.Nickname)

		// Add to request context for logger
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, logger.NicknameKey, claims.Nickname)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(string)
	}
	return ""
}

// GetNickname gets the authenticated user's nickname from context
func GetNickname(c *gin.Context) string {
	if nickname, exists := c.Get("nickname"); exists {
		return nickname.(string)
	}
	return ""
}
