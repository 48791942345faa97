package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret",
			AccessExpireHours:  1,
			RefreshExpireHours: 24,
		},
		Users: []config.User{
			{Username: "testuser", Password: "testpass", Nickname: "tester"},
		},
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	handler := NewAuthHandler(testConfig())

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "valid login",
			body:           map[string]string{"username": "testuser", "password": "testpass"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid username",
			body:           map[string]string{"username": "wronguser", "password": "testpass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid password",
			body:           map[string]string{"username": "testuser", "password": "wrongpass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing fields",
			body:           map[string]string{"username": "testuser"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/login", handler.Login)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/login", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedStatus == http.StatusOK {
				var response TokenResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
					t.Errorf("Failed to parse response: %v", err)
				}
				if response.AccessToken == "" || response.RefreshToken == "" {
					t.Error("Expected both tokens in response")
				}
				if response.Nickname != "tester" {
					t.Errorf("Expected nickname tester, got %s", response.Nickname)
				}
			}
		})
	}
}

func TestAuthHandlerRefresh(t *testing.T) {
	cfg := testConfig()
	handler := NewAuthHandler(cfg)

	pair, err := middleware.GenerateTokenPair("testuser", "tester", &cfg.Auth)
	if err != nil {
		t.Fatalf("Failed to generate token pair: %v", err)
	}

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{
			name:           "valid refresh token",
			token:          pair.RefreshToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "access token rejected",
			token:          pair.AccessToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			token:          "not.a.token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/refresh", handler.Refresh)

			body, _ := json.Marshal(map[string]string{"refresh_token": tt.token})
			req := httptest.NewRequest("POST", "/refresh", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedStatus == http.StatusOK {
				var response TokenResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}
				if response.AccessToken == "" {
					t.Error("Expected fresh access token")
				}
			}
		})
	}
}

func TestAuthHandlerGetCurrentUser(t *testing.T) {
	handler := NewAuthHandler(testConfig())

	router := gin.New()
	router.GET("/me", func(c *gin.Context) {
		c.Set("user_id", "testuser")
		c.Set("nickname", "tester")
		handler.GetCurrentUser(c)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["user_id"] != "testuser" || response["nickname"] != "tester" {
		t.Errorf("Unexpected response: %v", response)
	}
}
