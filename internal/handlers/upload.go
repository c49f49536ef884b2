package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/worldloom/worldloom-backend/internal/apierr"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/services"
)

// UploadHandler accepts user-supplied videos so reconstruction can be tried
// against footage the service did not generate.
type UploadHandler struct {
	log      *logger.Logger
	dataRoot string
}

func NewUploadHandler(log *logger.Logger, dataRoot string) *UploadHandler {
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		dataRoot: dataRoot,
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename keeps only the base name and a conservative character
// set, so an uploaded name can never escape the uploads directory.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	return base
}

// UploadVideo stores a multipart "video" file under dataRoot/uploads and
// returns the stored path and its /data URL.
func (h *UploadHandler) UploadVideo(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("no video file provided"))
		return
	}

	filename := sanitizeFilename(file.Filename)
	if filename == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest,
			errors.New("no file selected"))
		return
	}

	dest := filepath.Join(services.UploadDir(h.dataRoot), filename)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		RespondFromError(c, err)
		return
	}

	h.log.Info("Video uploaded", "filename", filename, "size", file.Size)
	RespondOK(c, gin.H{
		"filename":   filename,
		"video_path": dest,
		"url":        services.RelativeURL(h.dataRoot, dest),
	})
}
