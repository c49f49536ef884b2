package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/services"
)

type GenerationHandler struct {
	generationService *services.GenerationService
}

func NewGenerationHandler(generationService *services.GenerationService) *GenerationHandler {
	return &GenerationHandler{generationService: generationService}
}

type generateRequest struct {
	Prompt     string `json:"prompt"`
	NumTakes   int    `json:"num_takes"`
	UseRealAPI bool   `json:"use_real_api"`
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("prompt is required"))
		return
	}

	result, err := h.generationService.RequestGeneration(c.Request.Context(), req.Prompt, req.NumTakes, req.UseRealAPI)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *GenerationHandler) Progress(c *gin.Context) {
	key := c.Param("key")
	snap, err := h.generationService.GetProgress(key)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, snap)
}

func (h *GenerationHandler) Prompts(c *gin.Context) {
	list, err := h.generationService.ListCachedPrompts(c.Request.Context())
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"prompts": list})
}
