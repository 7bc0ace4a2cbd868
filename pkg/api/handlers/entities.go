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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/api/middleware"
	"github.com/beaconhq/beacon/pkg/models"
	"github.com/beaconhq/beacon/pkg/storage"
)

type createEntityRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateEntity handles POST /entities. The ID is optional; one is generated
// when absent.
func (s *Server) CreateEntity(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  "error",
			Message: "Entity name is required",
		})
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	entity := &models.Entity{
		ID:        req.ID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveEntity(c.Request.Context(), entity); err != nil {
		if storage.IsConflictError(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Status:  "error",
				Message: fmt.Sprintf("Entity with ID '%s' already exists", entity.ID),
			})
			return
		}
		log.Error("Failed to save entity", zap.Error(err), zap.String("entity_id", entity.ID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to save entity",
		})
		return
	}

	log.Info("Entity created",
		zap.String("entity_id", entity.ID),
		zap.String("name", entity.Name))

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Entity created successfully",
		"entity":  entity,
	})
}

// ListEntities handles GET /entities.
func (s *Server) ListEntities(c *gin.Context) {
	log := middleware.GetLogger(c, s.logger)

	entities, err := s.store.ListEntities(c.Request.Context())
	if err != nil {
		log.Error("Failed to list entities", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to list entities",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"count":    len(entities),
		"entities": entities,
	})
}

// GetEntity handles GET /entities/:id.
func (s *Server) GetEntity(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	entity, err := s.store.GetEntity(c.Request.Context(), entityID)
	if err != nil {
		if storage.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Status:  "error",
				Message: fmt.Sprintf("Entity with ID '%s' not found", entityID),
			})
			return
		}
		log.Error("Failed to load entity", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to load entity",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"entity": entity,
	})
}

// DeleteEntity handles DELETE /entities/:id. The entity's status history is
// removed with it.
func (s *Server) DeleteEntity(c *gin.Context) {
	entityID := c.Param("id")
	log := middleware.GetLogger(c, s.logger)

	if err := s.store.DeleteEntity(c.Request.Context(), entityID); err != nil {
		if storage.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Status:  "error",
				Message: fmt.Sprintf("Entity with ID '%s' not found", entityID),
			})
			return
		}
		log.Error("Failed to delete entity", zap.Error(err), zap.String("entity_id", entityID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Failed to delete entity",
		})
		return
	}

	log.Info("Entity deleted", zap.String("entity_id", entityID))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Entity deleted successfully",
		"id":      entityID,
	})
}
