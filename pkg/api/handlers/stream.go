/*
 * Copyright (c) 2026, Beacon HQ (https://github.com/beaconhq).
 *
 * Beacon HQ licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/api/middleware"
	"github.com/beaconhq/beacon/pkg/hub"
	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/beaconhq/beacon/pkg/models"
	"github.com/beaconhq/beacon/pkg/storage"
)

// wsWriteWait bounds every websocket write so a stalled peer cannot pin the
// handler goroutine.
const wsWriteWait = 10 * time.Second

// StreamEvents handles GET /entities/:id/events as a server-sent event
// stream. Subscription does not require a registered entity; a consumer may
// attach before the first status is published. The latest persisted status
// (when one exists) is replayed before live events.
func (s *Server) StreamEvents(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	sub, err := s.hub.Subscribe(entityID)
	if err != nil {
		log.Error("Failed to subscribe to entity stream", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to subscribe to entity stream",
		})
		return
	}
	defer sub.Cancel()

	metrics.ActiveStreams.WithLabelValues("sse").Inc()
	defer metrics.ActiveStreams.WithLabelValues("sse").Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	if hint := s.cfg.Hub.RetryHint; hint > 0 {
		fmt.Fprintf(c.Writer, "retry: %d\n\n", hint.Milliseconds())
	}

	if latest, err := s.store.GetStatus(c.Request.Context(), entityID); err == nil {
		_ = sse.Encode(c.Writer, sse.Event{Event: models.EventStatus, Data: latest})
	} else if !storage.IsNotFoundError(err) {
		log.Warn("Failed to load latest status for replay", zap.Error(err), zap.String("entity_id", entityID))
	}
	c.Writer.Flush()

	log.Debug("SSE stream opened",
		zap.String("entity_id", entityID),
		zap.String("subscription_id", sub.ID))

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				// Hub shut down underneath us.
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-clientGone:
			return false
		}
	})

	log.Debug("SSE stream closed",
		zap.String("entity_id", entityID),
		zap.String("subscription_id", sub.ID))
}

// StreamWebSocket handles GET /entities/:id/ws. It serves the same event
// feed as the SSE endpoint over a websocket upgrade, one JSON frame per
// event. The read side is drained solely to detect close and pong frames.
func (s *Server) StreamWebSocket(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		log.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("entity_id", entityID))
		return
	}
	defer conn.Close()

	sub, err := s.hub.Subscribe(entityID)
	if err != nil {
		log.Error("Failed to subscribe to entity stream", zap.Error(err), zap.String("entity_id", entityID))
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	defer sub.Cancel()

	metrics.ActiveStreams.WithLabelValues("ws").Inc()
	defer metrics.ActiveStreams.WithLabelValues("ws").Dec()

	if latest, err := s.store.GetStatus(c.Request.Context(), entityID); err == nil {
		if ev, err := hub.NewStatusEvent(latest); err == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	} else if !storage.IsNotFoundError(err) {
		log.Warn("Failed to load latest status for replay", zap.Error(err), zap.String("entity_id", entityID))
	}

	log.Debug("WebSocket stream opened",
		zap.String("entity_id", entityID),
		zap.String("subscription_id", sub.ID))

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingInterval := s.cfg.Hub.HeartbeatInterval
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug("WebSocket write failed", zap.Error(err), zap.String("entity_id", entityID))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-readerDone:
			log.Debug("WebSocket closed by client", zap.String("entity_id", entityID))
			return
		}
	}
}
