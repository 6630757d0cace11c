package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"disaster-alerts/internal/registry"
)

var errStreamClosed = errors.New("sse stream closed")

// sseClient is one live server-push connection. Broadcast sends and the
// handler's keep-alive writes share the response writer, so every write
// goes through the mutex.
type sseClient struct {
	mu     sync.Mutex
	writer gin.ResponseWriter
	closed bool
}

// Send implements registry.Subscriber.
func (s *sseClient) Send(payload []byte) error {
	return s.writeEvent("alert", string(payload))
}

func (s *sseClient) writeEvent(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if err := sse.Encode(s.writer, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	s.writer.Flush()
	return nil
}

func (s *sseClient) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// RegisterSSERoutes registers the server-push live stream.
//
// GET /sse — long-lived connection emitting a hello event on open, ping
// keep-alives every keepAlive, and alert events from the fan-out. A failed
// keep-alive ends the connection and drops it from the registry.
func RegisterSSERoutes(r gin.IRoutes, reg *registry.Registry, keepAlive time.Duration) {
	r.GET("/sse", func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.WriteHeader(http.StatusOK)
		c.Writer.Flush()

		client := &sseClient{writer: c.Writer}
		reg.Add(client)
		defer func() {
			client.close()
			reg.Remove(client)
		}()

		if err := client.writeEvent("hello", gin.H{"connectedAt": time.Now().UnixMilli()}); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				if err := client.writeEvent("ping", strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
					return
				}
			}
		}
	})
}
