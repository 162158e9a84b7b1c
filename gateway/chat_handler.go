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

	"github.com/google/uuid"

	"promptgate/policy"
	"promptgate/shared/logger"
)

// RejectionMessage is returned verbatim, with HTTP 200, for queries the
// allow-list does not admit. Rejection is an admission decision, not an
// HTTP error.
const RejectionMessage = "Command not allowed."

// Caller-facing error texts. Internal diagnostic detail is logged, never
// returned.
const (
	errInvalidBody        = "Invalid request body"
	errBackendUnavailable = "AI service is currently unavailable. Please check server configuration."
	errBackendFailed      = "An error occurred while processing your request with the AI backend. Please try again later."
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the success and rejection body of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// errorResponse is the body of non-2xx responses.
type errorResponse struct {
	Detail string `json:"detail"`
}

// ChatHandler serves POST /chat: it re-reads the allow-list, decides
// admission, and forwards admitted queries to the configured backend.
type ChatHandler struct {
	backend       Backend
	allowListFile string
	log           *logger.Logger
}

// NewChatHandler creates the handler. The allow-list file is re-read on every
// request so edits take effect without a restart.
func NewChatHandler(backend Backend, allowListFile string) *ChatHandler {
	return &ChatHandler{
		backend:       backend,
		allowListFile: allowListFile,
		log:           logger.New("gateway"),
	}
}

// ServeHTTP handles one chat request.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)

	defer func() {
		chatRequestDuration.Observe(float64(time.Since(startTime).Milliseconds()))
	}()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn(requestID, "Request body parse failed", map[string]interface{}{
			"error": err.Error(),
		})
		h.recordOutcome(outcomeBadReq)
		sendErrorResponse(w, errInvalidBody, http.StatusBadRequest)
		return
	}

	// Re-read the allow-list on every request: edits to the file take effect
	// on the next request, and a read failure degrades to an empty list,
	// which rejects everything.
	allowList := policy.LoadAllowList(h.allowListFile)
	allowListSize.Set(float64(allowList.Len()))

	verdict := policy.IsQueryAllowed(req.Message, allowList)
	if !verdict.Allowed {
		h.log.Info(requestID, "Blocked request", map[string]interface{}{
			"query": truncateString(req.Message, 100),
		})
		h.recordOutcome(outcomeBlocked)
		sendJSONResponse(w, http.StatusOK, ChatResponse{Response: RejectionMessage})
		return
	}

	h.log.Info(requestID, "Admitted request", map[string]interface{}{
		"query":         truncateString(req.Message, 100),
		"matched_rule":  string(verdict.MatchedRule),
		"matched_entry": verdict.MatchedEntry,
		"backend":       h.backend.Name(),
	})

	if !h.backend.IsHealthy() {
		h.log.Error(requestID, "Backend unavailable", map[string]interface{}{
			"backend": h.backend.Name(),
		})
		h.recordOutcome(outcomeError)
		backendCallsTotal.WithLabelValues(h.backend.Name(), "unavailable").Inc()
		sendErrorResponse(w, errBackendUnavailable, http.StatusInternalServerError)
		return
	}

	response, err := h.backend.Respond(r.Context(), req.Message)
	if err != nil {
		h.log.Error(requestID, "Backend request failed", map[string]interface{}{
			"backend": h.backend.Name(),
			"error":   err.Error(),
		})
		h.recordOutcome(outcomeError)
		backendCallsTotal.WithLabelValues(h.backend.Name(), "error").Inc()
		sendErrorResponse(w, errBackendFailed, http.StatusInternalServerError)
		return
	}

	h.log.InfoWithDuration(requestID, "Request served",
		float64(time.Since(startTime).Milliseconds()), nil)
	h.recordOutcome(outcomeAllowed)
	backendCallsTotal.WithLabelValues(h.backend.Name(), "success").Inc()
	sendJSONResponse(w, http.StatusOK, ChatResponse{Response: response})
}

func (h *ChatHandler) recordOutcome(outcome string) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
	stats.record(outcome)
}

func sendJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	sendJSONResponse(w, statusCode, errorResponse{Detail: message})
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
