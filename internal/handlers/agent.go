package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/services"
)

type AgentHandler struct {
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

type runAgentRequest struct {
	AssetPath string `json:"asset_path"`
	Prompt    string `json:"prompt"`
}

func (h *AgentHandler) RunAgent(c *gin.Context) {
	var req runAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("prompt is required"))
		return
	}

	result, err := h.agentService.RunAgent(c.Request.Context(), req.AssetPath, req.Prompt)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, result)
}
