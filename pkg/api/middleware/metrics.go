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

package middleware

import (
	"strconv"
	"time"

	"github.com/beaconhq/beacon/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics returns a middleware that records request counts, latencies,
// sizes and the in-flight request gauge.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.ConcurrentRequests.Inc()
		defer metrics.ConcurrentRequests.Dec()

		start := time.Now()

		requestSize := c.Request.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		c.Next()

		// Use the route pattern so path parameters do not explode the
		// label cardinality; fall back to the raw path for unmatched routes.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		responseSize := c.Writer.Size()
		if responseSize < 0 {
			responseSize = 0
		}

		metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestSizeBytes.WithLabelValues(endpoint).Observe(float64(requestSize))
		metrics.HTTPResponseSizeBytes.WithLabelValues(endpoint).Observe(float64(responseSize))
	}
}
