package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/services"
)

type ReconstructionHandler struct {
	reconstructionService *services.ReconstructionService
}

func NewReconstructionHandler(reconstructionService *services.ReconstructionService) *ReconstructionHandler {
	return &ReconstructionHandler{reconstructionService: reconstructionService}
}

type reconstructRequest struct {
	PromptKey  string `json:"prompt_key"`
	VideoPath  string `json:"video_path"`
	FrameCount int    `json:"frame_count"`
}

func (h *ReconstructionHandler) Reconstruct(c *gin.Context) {
	var req reconstructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if strings.TrimSpace(req.PromptKey) == "" || strings.TrimSpace(req.VideoPath) == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("prompt_key and video_path are required"))
		return
	}

	assetPath, format, err := h.reconstructionService.Reconstruct(c.Request.Context(), req.PromptKey, req.VideoPath, req.FrameCount)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"asset_path": assetPath, "format": format})
}

type generateSceneRequest struct {
	VideoPath  string `json:"video_path"`
	Prompt     string `json:"prompt"`
	FrameCount int    `json:"frame_count"`
}

// GenerateScene always answers 200: every reconstruction failure path lands
// on the canonical scene.
func (h *ReconstructionHandler) GenerateScene(c *gin.Context) {
	var req generateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	built := h.reconstructionService.GenerateScene(c.Request.Context(), req.VideoPath, req.Prompt, req.FrameCount)
	RespondOK(c, gin.H{"scene": built, "source": built.Source})
}
