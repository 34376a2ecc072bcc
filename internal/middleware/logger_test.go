package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func loggedRequest(t *testing.T, handler gin.HandlerFunc, target string) observer.LoggedEntry {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.POST("/api/v1/run", handler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", target, nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	return entries[0]
}

func TestLoggerRecordsRequestFields(t *testing.T) {
	entry := loggedRequest(t, func(c *gin.Context) {
		c.Set(ContextKeyUserID, int64(7))
		c.String(http.StatusOK, "ok")
	}, "/api/v1/run?stream=1")

	if entry.Level != zapcore.InfoLevel || entry.Message != "request" {
		t.Errorf("entry = %s %q", entry.Level, entry.Message)
	}
	fields := entry.ContextMap()
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["path"] != "/api/v1/run" {
		t.Errorf("path = %v", fields["path"])
	}
	if fields["query"] != "stream=1" {
		t.Errorf("query = %v", fields["query"])
	}
	if fields["user_id"] != int64(7) {
		t.Errorf("user_id = %v", fields["user_id"])
	}
	if _, ok := fields["bytes"]; !ok {
		t.Error("response size not logged")
	}
}

func TestLoggerWarnsOnServerError(t *testing.T) {
	entry := loggedRequest(t, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}, "/api/v1/run")

	if entry.Level != zapcore.WarnLevel || entry.Message != "request failed" {
		t.Errorf("entry = %s %q", entry.Level, entry.Message)
	}
	if entry.ContextMap()["status"] != int64(http.StatusInternalServerError) {
		t.Errorf("status = %v", entry.ContextMap()["status"])
	}
}
