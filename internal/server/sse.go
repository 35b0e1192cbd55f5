// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/frontdesk-dev/frontdesk/internal/agent"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

// ChatRequest is the request body for the chat-stream endpoint.
type ChatRequest struct {
	Message string `json:"message" minLength:"1" doc:"User message"`
	Phone   string `json:"phone,omitempty" doc:"Caller phone, used as the conversation key; anonymous when empty"`
}

// TurnRunner is the turn loop behind the chat endpoint. Satisfied by
// agent.Loop.
type TurnRunner interface {
	RunTurn(ctx context.Context, conversationKey, userText string) (<-chan agent.Fragment, error)
}

func (s *Server) registerChatRoute() {
	s.router.Post("/api/v1/chat/stream", s.handleChatStream)

	// Register the operation in the OpenAPI spec manually. The streaming
	// handler needs raw http.ResponseWriter access, so it cannot use huma's
	// standard handler signature; the chi route above does the work and this
	// entry documents it.
	minMessageLen := 1
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "chat-stream",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat/stream",
		Summary:     "Run one reception turn and stream the output",
		Description: "Send a message and receive the turn's fragments. Set Accept: text/event-stream for SSE, otherwise a JSON array of fragments is returned.",
		Tags:        []string{"chat"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"message"},
						Properties: map[string]*huma.Schema{
							"message": {
								Type:        "string",
								MinLength:   &minMessageLen,
								Description: "User message",
							},
							"phone": {
								Type:        "string",
								Description: "Caller phone, used as the conversation key",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Turn output (SSE or JSON depending on Accept header)",
				Content: map[string]*huma.MediaType{
					"text/event-stream": {
						Schema: &huma.Schema{
							Type:        "string",
							Description: "Server-sent fragment stream",
						},
					},
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"fragments": {
									Type:        "array",
									Description: "Collected fragments",
									Items:       &huma.Schema{Type: "object"},
								},
							},
						},
					},
				},
			},
			"422": {Description: "Validation error (missing message)"},
			"503": {Description: "Turn runner not configured"},
		},
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusUnprocessableEntity)
		return
	}

	if s.turns == nil {
		http.Error(w, `{"error":"turn runner not configured"}`, http.StatusServiceUnavailable)
		return
	}

	fragments, err := s.turns.RunTurn(r.Context(), req.Phone, req.Message)
	if err != nil {
		http.Error(w, `{"error":`+jsonQuote(err.Error())+`}`, fderr.HTTPStatus(err))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.writeSSE(w, fragments)
		return
	}
	s.writeJSON(w, fragments)
}

func (s *Server) writeSSE(w http.ResponseWriter, fragments <-chan agent.Fragment) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)

	for f := range fragments {
		data, err := json.Marshal(f)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Kind, data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, fragments <-chan agent.Fragment) {
	collected := make([]agent.Fragment, 0, 8)
	for f := range fragments {
		collected = append(collected, f)
	}

	w.Header().Set("Content-Type", "application/json")
	resp := struct {
		Fragments []agent.Fragment `json:"fragments"`
	}{Fragments: collected}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
	}
}

// jsonQuote renders a message as a JSON string literal.
func jsonQuote(message string) string {
	raw, _ := json.Marshal(message)
	return string(raw)
}
