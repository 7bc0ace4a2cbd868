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

package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/api/handlers"
	"github.com/beaconhq/beacon/pkg/api/middleware"
	"github.com/beaconhq/beacon/pkg/ratelimit"
)

// NewRouter assembles the gin engine: the middleware chain and every route.
// limiter may be nil when rate limiting is disabled.
// Correlation ID runs first so the ID is available to all later middleware
// and handlers.
func NewRouter(server *handlers.Server, limiter ratelimit.Limiter, limiterBackend string, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CorrelationID(logger))
	router.Use(middleware.ErrorHandling(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics())
	router.Use(gin.Recovery())
	if limiter != nil {
		router.Use(middleware.RateLimit(limiter, limiterBackend, logger))
	}

	router.GET("/health", server.HealthCheck)

	entities := router.Group("/entities")
	{
		entities.POST("", server.CreateEntity)
		entities.GET("", server.ListEntities)
		entities.GET("/:id", server.GetEntity)
		entities.DELETE("/:id", server.DeleteEntity)
		entities.PUT("/:id/status", server.UpdateStatus)
		entities.GET("/:id/status", server.GetStatus)
		entities.GET("/:id/status/history", server.GetStatusHistory)
		entities.POST("/:id/error", server.ReportError)
		entities.GET("/:id/events", server.StreamEvents)
		entities.GET("/:id/ws", server.StreamWebSocket)
	}

	return router
}
