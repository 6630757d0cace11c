package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"disaster-alerts/internal/registry"
)

func TestSSEStreamHelloAndCleanup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New("sse", nil)
	router := gin.New()
	RegisterSSERoutes(router.Group("/api"), reg, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	require.Zero(t, reg.Len())
	body := rec.Body.String()
	require.Contains(t, body, "event:hello")
	require.Contains(t, body, "connectedAt")
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestSSEKeepAliveWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New("sse", nil)
	router := gin.New()
	RegisterSSERoutes(router.Group("/api"), reg, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.GreaterOrEqual(t, strings.Count(rec.Body.String(), "event:ping"), 1)
}

func TestWSStreamDeliversAlerts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New("ws", nil)
	router := gin.New()
	RegisterWSRoutes(router.Group("/api"), reg, nil)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer res.Body.Close()

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var hello map[string]any
	require.NoError(t, json.Unmarshal(frame, &hello))
	require.Equal(t, "hello", hello["event"])

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 10*time.Millisecond)

	out := reg.Deliver(context.Background(), []byte(`{"eventType":"DISASTER_ALERT"}`))
	require.Equal(t, 1, out.Sent)

	_, frame, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(frame), "DISASTER_ALERT")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 10*time.Millisecond)
}
