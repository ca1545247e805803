package main

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sebsoto/mcp/internal/orchestrator"
	"github.com/sebsoto/mcp/internal/protocol"
	"github.com/sebsoto/mcp/internal/session"
)

// GatewayHandler exposes the chat protocol over HTTP. All conversation logic
// lives behind the session manager; the handler only translates between the
// wire envelopes and manager calls.
type GatewayHandler struct {
	manager *session.Manager
}

func NewGatewayHandler(manager *session.Manager) *GatewayHandler {
	return &GatewayHandler{manager: manager}
}

// RegisterRoutes attaches the handler's endpoints to the engine.
func (h *GatewayHandler) RegisterRoutes(engine *gin.Engine) {
	v1 := engine.Group("/api/v1")
	{
		v1.POST("/chat", h.HandleChat)
		v1.DELETE("/sessions/:key", h.HandleCloseSession)
	}
	engine.GET("/healthz", h.HandleHealth)
}

// HandleChat runs one user turn and answers with the assistant's text plus
// the tool trace, or a structured error.
func (h *GatewayHandler) HandleChat(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, protocol.ErrKindProtocolParse, "failed to read request body")
		return
	}

	req, err := protocol.DecodeRequest(body)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, protocol.ErrKindProtocolParse, err.Error())
		return
	}

	result, err := h.manager.SubmitUserMessage(c.Request.Context(), req.SessionKey, req.Text)
	if err != nil {
		status, kind := classifyTurnError(err)
		log.Printf("⚠️ Turn failed for session %q: %v", req.SessionKey, err)
		h.writeError(c, status, kind, err.Error())
		return
	}

	h.writeResponse(c, http.StatusOK, &protocol.ChatResponse{
		AssistantText: result.AssistantText,
		ToolTrace:     result.Trace,
	})
}

// HandleCloseSession ends a session and discards its transcript.
func (h *GatewayHandler) HandleCloseSession(c *gin.Context) {
	key := c.Param("key")
	if err := h.manager.CloseSession(c.Request.Context(), key); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("⚠️ Failed to close session %q: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth reports liveness and build information.
func (h *GatewayHandler) HandleHealth(c *gin.Context) {
	info := GetBuildInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": info.Version,
	})
}

// classifyTurnError maps a manager or loop failure onto an HTTP status and a
// protocol error kind.
func classifyTurnError(err error) (int, string) {
	if errors.Is(err, session.ErrSessionClosed) {
		return http.StatusConflict, protocol.ErrKindSessionClosed
	}

	var abort *orchestrator.AbortError
	if errors.As(err, &abort) {
		switch abort.Kind {
		case orchestrator.KindBackendTimeout:
			return http.StatusGatewayTimeout, protocol.ErrKindBackendTimeout
		case orchestrator.KindBackendUnavailable:
			return http.StatusBadGateway, protocol.ErrKindBackendUnavailable
		case orchestrator.KindIterationBound:
			return http.StatusUnprocessableEntity, protocol.ErrKindIterationBound
		}
	}
	return http.StatusInternalServerError, protocol.ErrKindInternal
}

func (h *GatewayHandler) writeError(c *gin.Context, status int, kind, message string) {
	h.writeResponse(c, status, &protocol.ChatResponse{
		Error: &protocol.ErrorInfo{Kind: kind, Message: message},
	})
}

func (h *GatewayHandler) writeResponse(c *gin.Context, status int, resp *protocol.ChatResponse) {
	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding failure"})
		return
	}
	c.Data(status, "application/json", payload)
}
