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
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const serviceName = "promptgate"

// NewRouter builds the gateway's HTTP routes over the given backend. Tests
// drive it directly through httptest.
func NewRouter(backend Backend, allowListFile string) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler).Methods("GET")

	// Metrics endpoint for real performance data (JSON format)
	router.HandleFunc("/metrics", metricsHandler).Methods("GET")

	// Prometheus metrics endpoint (Prometheus exposition format)
	router.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	// Main client request endpoint - all requests flow through here
	router.Handle("/chat", NewChatHandler(backend, allowListFile)).Methods("POST")

	return router
}

// Run is the exported entry point for the gateway service. It loads
// configuration, constructs the selected backend, and serves until the
// process is stopped.
func Run() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	backend, err := NewBackend(cfg)
	if err != nil {
		log.Fatalf("Backend setup error: %v", err)
	}

	router := NewRouter(backend, cfg.AllowListFile)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := corsMiddleware.Handler(router)

	log.Printf("🚀 PromptGate starting on port %s (backend: %s, allow-list: %s)",
		cfg.Port, backend.Name(), cfg.AllowListFile)
	if !backend.IsHealthy() {
		log.Printf("⚠️  Backend %q has no usable credentials - admitted requests will fail until configured", backend.Name())
	}

	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}
