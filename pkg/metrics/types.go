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

import "github.com/prometheus/client_golang/prometheus"

// Enabled controls whether metrics are collected. When false every metric
// is a noop so instrumented code paths never need to branch.
var Enabled bool

// SetEnabled must be called before Init
func SetEnabled(enabled bool) {
	Enabled = enabled
}

// IsEnabled reports whether metrics collection is active
func IsEnabled() bool {
	return Enabled
}

// Counter is the subset of prometheus.Counter the codebase uses
type Counter interface {
	Inc()
	Add(float64)
}

// CounterVec is a labelled family of counters
type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

// Gauge is the subset of prometheus.Gauge the codebase uses
type Gauge interface {
	Set(float64)
	Inc()
	Dec()
}

// GaugeVec is a labelled family of gauges
type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

// GaugeFunc mirrors prometheus.GaugeFunc; nil when metrics are disabled
type GaugeFunc = prometheus.GaugeFunc

// Histogram is the subset of prometheus.Histogram the codebase uses
type Histogram interface {
	Observe(float64)
}

// HistogramVec is a labelled family of histograms
type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type counterVecWrapper struct {
	*prometheus.CounterVec
}

func (w *counterVecWrapper) WithLabelValues(lvs ...string) Counter {
	return w.CounterVec.WithLabelValues(lvs...)
}

type gaugeVecWrapper struct {
	*prometheus.GaugeVec
}

func (w *gaugeVecWrapper) WithLabelValues(lvs ...string) Gauge {
	return w.GaugeVec.WithLabelValues(lvs...)
}

type histogramVecWrapper struct {
	*prometheus.HistogramVec
}

func (w *histogramVecWrapper) WithLabelValues(lvs ...string) Histogram {
	return w.HistogramVec.WithLabelValues(lvs...)
}

type noopCounter struct{}

func (noopCounter) Inc()          {}
func (noopCounter) Add(_ float64) {}

type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(_ ...string) Counter { return noopCounter{} }

type noopGauge struct{}

func (noopGauge) Set(_ float64) {}
func (noopGauge) Inc()          {}
func (noopGauge) Dec()          {}

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(_ ...string) Gauge { return noopGauge{} }

type noopHistogram struct{}

func (noopHistogram) Observe(_ float64) {}

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(_ ...string) Histogram { return noopHistogram{} }

func newCounter(opts prometheus.CounterOpts) Counter {
	if !Enabled {
		return noopCounter{}
	}
	return prometheus.NewCounter(opts)
}

func newCounterVec(opts prometheus.CounterOpts, labels []string) CounterVec {
	if !Enabled {
		return noopCounterVec{}
	}
	return &counterVecWrapper{prometheus.NewCounterVec(opts, labels)}
}

func newGauge(opts prometheus.GaugeOpts) Gauge {
	if !Enabled {
		return noopGauge{}
	}
	return prometheus.NewGauge(opts)
}

func newGaugeVec(opts prometheus.GaugeOpts, labels []string) GaugeVec {
	if !Enabled {
		return noopGaugeVec{}
	}
	return &gaugeVecWrapper{prometheus.NewGaugeVec(opts, labels)}
}

func newGaugeFunc(opts prometheus.GaugeOpts, fn func() float64) GaugeFunc {
	if !Enabled {
		return nil
	}
	return prometheus.NewGaugeFunc(opts, fn)
}

func newHistogramVec(opts prometheus.HistogramOpts, labels []string) HistogramVec {
	if !Enabled {
		return noopHistogramVec{}
	}
	return &histogramVecWrapper{prometheus.NewHistogramVec(opts, labels)}
}
