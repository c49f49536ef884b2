package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/services"
)

type AnalyzeHandler struct{}

func NewAnalyzeHandler() *AnalyzeHandler {
	return &AnalyzeHandler{}
}

type analyzePromptRequest struct {
	Prompt string `json:"prompt"`
}

func (h *AnalyzeHandler) AnalyzePrompt(c *gin.Context) {
	var req analyzePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("prompt is required"))
		return
	}

	RespondOK(c, gin.H{"analysis": services.AnalyzePrompt(req.Prompt)})
}
