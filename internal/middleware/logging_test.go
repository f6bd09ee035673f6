package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(RequestLogging(zap.New(core).Sugar()))
	var seen string
	r.GET("/api/health", func(c *gin.Context) {
		seen = RequestID(c)
		c.Status(http.StatusOK)
	})
	r.GET("/api/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		id := rec.Header().Get("X-Request-ID")
		if len(id) != 36 {
			t.Fatalf("expected a uuid request id, got %q", id)
		}
		if seen != id {
			t.Errorf("expected handler to see %q, got %q", id, seen)
		}
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
			t.Errorf("expected abc-123, got %q", got)
		}
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/broken", nil))

		warned := logs.FilterLevelExact(zap.WarnLevel).FilterMessage("request").Len()
		if warned != 1 {
			t.Errorf("expected 1 warn entry, got %d", warned)
		}
	})
}
