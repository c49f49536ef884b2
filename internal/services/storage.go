// Package services holds the orchestration layer: generation coordination,
// scene reconstruction with its fallback policy, and the agent run that
// closes the prompt-revision loop.
package services

import (
	"path/filepath"
	"strings"
)

// GenerationDir is where a key's video takes land.
func GenerationDir(dataRoot, key string) string {
	return filepath.Join(dataRoot, "generations", key)
}

// ReconstructionDir is where a key's reconstructed scene asset lands.
func ReconstructionDir(dataRoot, key string) string {
	return filepath.Join(dataRoot, "reconstructions", key)
}

// UploadDir is where user-supplied videos land.
func UploadDir(dataRoot string) string {
	return filepath.Join(dataRoot, "uploads")
}

// RelativeURL maps an on-disk artifact path to its /data URL. Paths outside
// dataRoot come back empty.
func RelativeURL(dataRoot, path string) string {
	rel, err := filepath.Rel(dataRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "/data/" + filepath.ToSlash(rel)
}
