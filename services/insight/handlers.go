// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package insight

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ravenstack/insight/services/insight/analytics"
	"github.com/ravenstack/insight/services/insight/nlq"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

// ErrorResponse is the uniform error payload for all insight endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AskRequest is the body for POST /v1/insight/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse pairs the resolution with its rendered view.
type AskResponse struct {
	RequestID string         `json:"request_id"`
	Result    nlq.Result     `json:"result"`
	View      analytics.View `json:"view"`
}

// QueryRequest is the body for POST /v1/insight/query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// ChatRequest is the body for POST /v1/insight/chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the assistant's answer.
type ChatResponse struct {
	RequestID string `json:"request_id"`
	Reply     string `json:"reply"`
}

// Handlers exposes the Service over HTTP.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates the handler set for a service.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleAsk handles POST /v1/insight/ask.
//
// Description:
//
//	Resolves an analytics question to an intent and renders the matching
//	view over the current prediction snapshot. Unrecognized questions
//	return 200 with the unknown fallback — not understanding a question
//	is a result, not a failure.
//
// Response:
//
//	200 OK: AskResponse
//	400 Bad Request: Missing or empty question
//	500 Internal Server Error: Snapshot load failure
func (h *Handlers) HandleAsk(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleAsk")

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	result, view, err := h.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		logger.Error("ask failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to answer question",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, AskResponse{
		RequestID: requestID,
		Result:    result,
		View:      view,
	})
}

// HandleQuery handles POST /v1/insight/query.
//
// Description:
//
//	Synthesizes a warehouse query from the question and executes it. The
//	envelope reports success=false for unmatched questions, missing
//	parameters, and execution failures, always with a user-facing message;
//	the HTTP status stays 200 for all of those shapes.
//
// Response:
//
//	200 OK: nlq.Envelope
//	400 Bad Request: Missing or empty question
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	envelope := h.service.Query(c.Request.Context(), req.Question)
	c.Header("X-Request-ID", requestID)
	c.JSON(http.StatusOK, envelope)
}

// HandleChat handles POST /v1/insight/chat.
//
// Response:
//
//	200 OK: ChatResponse
//	400 Bad Request: Missing or empty message
//	500 Internal Server Error: Snapshot load failure
func (h *Handlers) HandleChat(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleChat")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "message is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), req.Message)
	if err != nil {
		logger.Error("chat failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to answer message",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{RequestID: requestID, Reply: reply})
}

// HandleExamples handles GET /v1/insight/examples.
func (h *Handlers) HandleExamples(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"examples": h.service.Examples()})
}

// HandleSchema handles GET /v1/insight/schema.
func (h *Handlers) HandleSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schema": h.service.Schema()})
}

// HandleHealth handles GET /v1/insight/health. Liveness only.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/insight/ready. Verifies the warehouse answers.
func (h *Handlers) HandleReady(c *gin.Context) {
	if err := h.service.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "warehouse not ready",
			Code:  "NOT_READY",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
