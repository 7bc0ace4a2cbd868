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
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "beacon"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	HTTPRequestsTotal          CounterVec
	HTTPRequestDurationSeconds HistogramVec
	HTTPRequestSizeBytes       HistogramVec
	HTTPResponseSizeBytes      HistogramVec
	ConcurrentRequests         Gauge

	ActiveStreams        GaugeVec
	EventsPublishedTotal CounterVec
	EventsDroppedTotal   CounterVec
	SubscribersTotal     Gauge
	HeartbeatsSentTotal  Counter

	StorageOperationsTotal          CounterVec
	StorageOperationDurationSeconds HistogramVec
	StorageErrorsTotal              CounterVec

	RateLimitDecisionsTotal CounterVec
	ValidationErrorsTotal   CounterVec
	PanicRecoveriesTotal    CounterVec

	Up          Gauge
	Info        GaugeVec
	Goroutines  GaugeFunc
	MemoryBytes GaugeVec
)

// All metric variables start as noops so instrumented packages can record
// before Init runs. Init rebuilds them as real collectors when enabled.
func init() {
	initMetrics()
}

// initMetrics initializes all metric variables.
// This must be called after SetEnabled() to ensure proper noop behavior when disabled.
func initMetrics() {
	HTTPRequestsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestSizeBytes = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"path"},
	)

	HTTPResponseSizeBytes = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"path"},
	)

	ConcurrentRequests = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "concurrent_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	ActiveStreams = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of live event stream connections",
		},
		[]string{"transport"},
	)

	EventsPublishedTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published to the hub",
		},
		[]string{"event"},
	)

	EventsDroppedTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped on full subscriber buffers",
		},
		[]string{"event"},
	)

	SubscribersTotal = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers_total",
			Help:      "Current number of hub subscribers",
		},
	)

	HeartbeatsSentTotal = newCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_sent_total",
			Help:      "Total number of heartbeat events broadcast to subscribers",
		},
	)

	StorageOperationsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		},
		[]string{"operation", "backend"},
	)

	StorageOperationDurationSeconds = newHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Duration of storage operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"operation", "backend"},
	)

	StorageErrorsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of storage operation errors",
		},
		[]string{"operation", "backend"},
	)

	RateLimitDecisionsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Total number of rate limit decisions",
		},
		[]string{"backend", "decision"},
	)

	ValidationErrorsTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Total number of payload validation failures",
		},
		[]string{"type"},
	)

	PanicRecoveriesTotal = newCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panic_recoveries_total",
			Help:      "Total number of panic recoveries",
		},
		[]string{"component"},
	)

	Up = newGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "Beacon daemon liveness indicator (1=up, 0=down)",
		},
	)

	Info = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Beacon daemon build information",
		},
		[]string{"version", "storage_type", "hub_backend"},
	)

	Goroutines = newGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
		func() float64 {
			return float64(runtime.NumGoroutine())
		},
	)

	MemoryBytes = newGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Memory usage in bytes",
		},
		[]string{"type"},
	)
}

func registerCounter(v Counter) {
	if !Enabled {
		return
	}
	if c, ok := v.(prometheus.Counter); ok {
		_ = registry.Register(c)
	}
}

func registerCounterVec(v CounterVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*counterVecWrapper); ok {
		_ = registry.Register(wrapper.CounterVec)
	}
}

func registerGauge(v Gauge) {
	if !Enabled {
		return
	}
	if g, ok := v.(prometheus.Gauge); ok {
		_ = registry.Register(g)
	}
}

func registerGaugeVec(v GaugeVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*gaugeVecWrapper); ok {
		_ = registry.Register(wrapper.GaugeVec)
	}
}

func registerGaugeFunc(v GaugeFunc) {
	if !Enabled || v == nil {
		return
	}
	_ = registry.Register(v)
}

func registerHistogramVec(v HistogramVec) {
	if !Enabled {
		return
	}
	if wrapper, ok := v.(*histogramVecWrapper); ok {
		_ = registry.Register(wrapper.HistogramVec)
	}
}

func initRegistry() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registerCounterVec(HTTPRequestsTotal)
	registerHistogramVec(HTTPRequestDurationSeconds)
	registerHistogramVec(HTTPRequestSizeBytes)
	registerHistogramVec(HTTPResponseSizeBytes)
	registerGauge(ConcurrentRequests)

	registerGaugeVec(ActiveStreams)
	registerCounterVec(EventsPublishedTotal)
	registerCounterVec(EventsDroppedTotal)
	registerGauge(SubscribersTotal)
	registerCounter(HeartbeatsSentTotal)

	registerCounterVec(StorageOperationsTotal)
	registerHistogramVec(StorageOperationDurationSeconds)
	registerCounterVec(StorageErrorsTotal)

	registerCounterVec(RateLimitDecisionsTotal)
	registerCounterVec(ValidationErrorsTotal)
	registerCounterVec(PanicRecoveriesTotal)

	registerGauge(Up)
	registerGaugeVec(Info)
	registerGaugeFunc(Goroutines)
	registerGaugeVec(MemoryBytes)

	Up.Set(1)
}

// Init initializes the metrics registry with all collectors.
// This must be called after SetEnabled() has been called.
func Init() *prometheus.Registry {
	once.Do(func() {
		// Initialize all metric variables first
		initMetrics()

		if !Enabled {
			registry = prometheus.NewRegistry()
			return
		}
		initRegistry()
	})

	return registry
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return Init()
	}
	return registry
}

// ObserveStorageOperation records one storage call with its duration and
// error outcome
func ObserveStorageOperation(operation, backend string, duration time.Duration, err error) {
	if !Enabled {
		return
	}
	StorageOperationsTotal.WithLabelValues(operation, backend).Inc()
	StorageOperationDurationSeconds.WithLabelValues(operation, backend).Observe(duration.Seconds())
	if err != nil {
		StorageErrorsTotal.WithLabelValues(operation, backend).Inc()
	}
}

// UpdateMemoryMetrics updates memory-related metrics
func UpdateMemoryMetrics() {
	if !Enabled {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryBytes.WithLabelValues("heap_alloc").Set(float64(m.HeapAlloc))
	MemoryBytes.WithLabelValues("heap_sys").Set(float64(m.HeapSys))
	MemoryBytes.WithLabelValues("stack_inuse").Set(float64(m.StackInuse))
}
