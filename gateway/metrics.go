// Copyright 2025 PromptGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_chat_requests_total",
			Help: "Total number of chat requests by outcome",
		},
		[]string{"outcome"},
	)
	chatRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promptgate_chat_request_duration_milliseconds",
			Help:    "Chat request duration in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
		},
	)
	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_backend_calls_total",
			Help: "Total number of backend calls by backend and status",
		},
		[]string{"backend", "status"},
	)
	allowListSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "promptgate_allow_list_entries",
			Help: "Number of entries loaded from the allow-list file on the last request",
		},
	)
)

// Request outcome label values.
const (
	outcomeAllowed = "allowed"
	outcomeBlocked = "blocked"
	outcomeError   = "error"
	outcomeBadReq  = "bad_request"
)

var metricsRegisterOnce sync.Once

func init() {
	registerMetrics()
}

// registerMetrics registers all gateway metrics once (safe for multiple calls)
func registerMetrics() {
	metricsRegisterOnce.Do(func() {
		prometheus.MustRegister(
			chatRequestsTotal,
			chatRequestDuration,
			backendCallsTotal,
			allowListSize,
		)
	})
}

// gatewayStats backs the JSON /metrics snapshot. Prometheus counters cannot
// be read back, so the handler keeps its own atomics.
type gatewayStats struct {
	startTime       time.Time
	totalRequests   int64
	allowedRequests int64
	blockedRequests int64
	failedRequests  int64
}

var stats = &gatewayStats{startTime: time.Now()}

func (s *gatewayStats) record(outcome string) {
	atomic.AddInt64(&s.totalRequests, 1)
	switch outcome {
	case outcomeAllowed:
		atomic.AddInt64(&s.allowedRequests, 1)
	case outcomeBlocked:
		atomic.AddInt64(&s.blockedRequests, 1)
	default:
		atomic.AddInt64(&s.failedRequests, 1)
	}
}

// metricsHandler serves a JSON snapshot of request counters. The Prometheus
// exposition format lives at /prometheus.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(stats.startTime).Seconds()
	total := atomic.LoadInt64(&stats.totalRequests)

	rps := float64(0)
	if uptime > 0 {
		rps = float64(total) / uptime
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"uptime_seconds":      uptime,
		"total_requests":      total,
		"allowed_requests":    atomic.LoadInt64(&stats.allowedRequests),
		"blocked_requests":    atomic.LoadInt64(&stats.blockedRequests),
		"failed_requests":     atomic.LoadInt64(&stats.failedRequests),
		"requests_per_second": rps,
		"timestamp":           time.Now().UTC(),
	}); err != nil {
		log.Printf("Error encoding metrics response: %v", err)
	}
}
