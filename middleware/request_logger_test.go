package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	return &buf
}

// identifyAs stores user info the way AuthMiddleware does after
// validating a token.
func identifyAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.GET("/api/contracts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"contracts": []string{}})
	})
	router.GET("/api/contracts/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
	})
	router.GET("/api/contracts/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		logLevel       string
	}{
		{"success request", "/api/contracts", http.StatusOK, "INFO"},
		{"client error", "/api/contracts/missing", http.StatusNotFound, "WARN"},
		{"server error", "/api/contracts/broken", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			logOutput := buf.String()
			if !strings.Contains(logOutput, "request completed") {
				t.Error("Expected 'request completed' in log")
			}
			if !strings.Contains(logOutput, tt.path) {
				t.Errorf("Expected path '%s' in log", tt.path)
			}
			if !strings.Contains(logOutput, tt.logLevel) {
				t.Errorf("Expected log level '%s' in log", tt.logLevel)
			}
		})
	}
}

func TestRequestLoggerAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(identifyAs("user-42"))
	router.Use(RequestLogger())
	router.GET("/api/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	req := httptest.NewRequest("GET", "/api/me", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "user_id=user-42") {
		t.Errorf("Expected user_id attribute in log, got: %s", logOutput)
	}
}

func TestRequestLoggerAnonymousOmitsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if strings.Contains(buf.String(), "user_id") {
		t.Errorf("Expected no user_id for anonymous request, got: %s", buf.String())
	}
}

func TestRequestLoggerWithQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/api/contracts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"contracts": []string{}})
	})

	req := httptest.NewRequest("GET", "/api/contracts?status=IN_PROGRESS", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "query") {
		t.Error("Expected query parameters in log")
	}
}
