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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/api/middleware"
	"github.com/beaconhq/beacon/pkg/hub"
	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/beaconhq/beacon/pkg/models"
	"github.com/beaconhq/beacon/pkg/storage"
)

// UpdateStatus handles PUT /entities/:id/status. The update is validated,
// persisted as the entity's latest status and fanned out to subscribers.
// Status feeds are not tied to entity registration; unknown ids are accepted.
func (s *Server) UpdateStatus(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	var update models.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}

	if update.ID != "" && update.ID != entityID {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Entity ID in body does not match path",
		})
		return
	}
	update.ID = entityID
	if update.Timestamp == 0 {
		update.Timestamp = models.EpochMillis(time.Now())
	}

	if err := models.ValidateStatusUpdate(&update); err != nil {
		metrics.ValidationErrorsTotal.WithLabelValues("status_update").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	if err := s.store.SaveStatus(c.Request.Context(), &update); err != nil {
		log.Error("Failed to persist status update", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to persist status update",
		})
		return
	}

	ev, err := hub.NewStatusEvent(&update)
	if err != nil {
		log.Error("Failed to encode status event", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to publish status update",
		})
		return
	}
	if err := s.hub.Publish(c.Request.Context(), entityID, ev); err != nil {
		// The update is already durable; subscribers will catch up on
		// their next replay.
		log.Warn("Failed to publish status update", zap.Error(err), zap.String("entity_id", entityID))
	}

	log.Info("Status update accepted",
		zap.String("entity_id", entityID),
		zap.String("update_status", update.Status),
		zap.Int("progress", update.Progress))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"update": update,
	})
}

type reportErrorRequest struct {
	Message string `json:"message"`
}

// ReportError handles POST /entities/:id/error. It publishes an
// application-level error event to the entity's subscribers without touching
// the persisted status or closing any stream.
func (s *Server) ReportError(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	var req reportErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Error message is required",
		})
		return
	}

	if err := s.hub.Publish(c.Request.Context(), entityID, hub.NewErrorEvent(req.Message)); err != nil {
		log.Error("Failed to publish error event", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to publish error event",
		})
		return
	}

	log.Info("Error event published",
		zap.String("entity_id", entityID),
		zap.String("message", req.Message))

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "success",
		"message": "Error event published",
	})
}

// GetStatusHistory handles GET /entities/:id/status/history. Updates are
// returned newest first; the limit query parameter is capped at 100.
func (s *Server) GetStatusHistory(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Status:  "error",
				Message: "Invalid limit parameter",
			})
			return
		}
		limit = parsed
	}
	if limit > 100 {
		limit = 100
	}

	updates, err := s.store.ListStatusHistory(c.Request.Context(), entityID, limit)
	if err != nil {
		log.Error("Failed to load status history", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to load status history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"count":   len(updates),
		"updates": updates,
	})
}

// GetStatus handles GET /entities/:id/status and returns the latest
// persisted update.
func (s *Server) GetStatus(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	update, err := s.store.GetStatus(c.Request.Context(), entityID)
	if err != nil {
		if storage.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Status:  "error",
				Message: fmt.Sprintf("No status for entity '%s'", entityID),
			})
			return
		}
		log.Error("Failed to load status", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to load status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"update": update,
	})
}
