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

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/pkg/config"
)

// memoryMetricsInterval is how often the memory gauges are refreshed while
// the server is running.
const memoryMetricsInterval = 30 * time.Second

// Server is the metrics HTTP server
type Server struct {
	cfg        *config.MetricsConfig
	httpServer *http.Server
	log        *zap.Logger
	cancelMem  context.CancelFunc
}

// NewServer creates a new metrics server
func NewServer(cfg *config.MetricsConfig, log *zap.Logger) *Server {
	// Initialize metrics registry
	registry := Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Health endpoint for the metrics server itself
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return &Server{
		cfg:        cfg,
		httpServer: httpServer,
		log:        log,
	}
}

// Start binds the metrics listener and begins serving. The memory gauge
// updater runs until Stop is called.
func (s *Server) Start() error {
	s.log.Info("Starting metrics HTTP server", zap.Int("port", s.cfg.Port))

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("metrics server failed to bind: %w", err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	memCtx, cancel := context.WithCancel(context.Background())
	s.cancelMem = cancel
	go s.runMemoryMetricsUpdater(memCtx)

	return nil
}

// Stop gracefully stops the metrics HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping metrics HTTP server")
	if s.cancelMem != nil {
		s.cancelMem()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) runMemoryMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(memoryMetricsInterval)
	defer ticker.Stop()

	UpdateMemoryMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateMemoryMetrics()
		}
	}
}
