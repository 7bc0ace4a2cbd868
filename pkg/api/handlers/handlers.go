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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/config"
	"github.com/beaconhq/beacon/pkg/hub"
	"github.com/beaconhq/beacon/pkg/storage"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Server carries the dependencies shared by all HTTP handlers.
type Server struct {
	store    storage.StatusStore
	hub      hub.Hub
	cfg      *config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates an API server with its dependencies.
func NewServer(store storage.StatusStore, eventHub hub.Hub, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:  store,
		hub:    eventHub,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				// Streams carry no credentials and ids are opaque;
				// cross-origin consumers are allowed.
				return true
			},
		},
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
