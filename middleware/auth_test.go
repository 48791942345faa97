package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:          "test-secret-key",
		AccessExpireHours:  1,
		RefreshExpireHours: 24,
	}
}

func TestGenerateTokenPair(t *testing.T) {
	cfg := testAuthConfig()

	pair, err := GenerateTokenPair("user-1", "tester", cfg)
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Expected non-empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("Expected access and refresh tokens to differ")
	}

	// Verify access expiry is approximately 1 hour from now
	expectedExpiry := time.Now().Add(time.Hour)
	if pair.AccessExpiresAt.Before(expectedExpiry.Add(-time.Minute)) || pair.AccessExpiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Access expiry %v is not within expected range of %v", pair.AccessExpiresAt, expectedExpiry)
	}

	claims, err := ParseToken(pair.RefreshToken, cfg.JWTSecret)
	if err != nil {
		t.Fatalf("Failed to parse refresh token: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("Expected refresh token type, got %s", claims.TokenType)
	}
	if claims.UserID != "user-1" || claims.Nickname != "tester" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testAuthConfig()

	pair, err := GenerateTokenPair("user-1", "tester", cfg)
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "valid access token",
			authHeader:     "Bearer " + pair.AccessToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "refresh token rejected on protected route",
			authHeader:     "Bearer " + pair.RefreshToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid format",
			authHeader:     pair.AccessToken, // Missing "Bearer "
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	cfg := testAuthConfig()

	// Create an expired access token
	claims := Claims{
		UserID:    "user-1",
		Nickname:  "tester",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)), // Expired 1 hour ago
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(cfg.JWTSecret))

	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for expired token, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestGetUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUserID(c) != "" {
		t.Error("Expected empty string for unset user id")
	}

	c.Set("user_id", "user-1")
	if GetUserID(c) != "user-1" {
		t.Errorf("Expected 'user-1', got '%s'", GetUserID(c))
	}
}

func TestGetNickname(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetNickname(c) != "" {
		t.Error("Expected empty string for unset nickname")
	}

	c.Set("nickname", "tester")
	if GetNickname(c) != "tester" {
		t.Errorf("Expected 'tester', got '%s'", GetNickname(c))
	}
}
