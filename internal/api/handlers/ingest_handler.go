package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/andresuchdata/bakeplan/internal/drive"
	"github.com/andresuchdata/bakeplan/internal/ingest"
	"github.com/gin-gonic/gin"
)

type IngestService interface {
	IngestPrefix(ctx context.Context, prefix string) (*ingest.Summary, error)
	IngestDrive(ctx context.Context, folderPath string) (*ingest.Summary, error)
	ListDriveFiles(ctx context.Context, folderPath string) ([]*drive.File, error)
}

type IngestHandler struct {
	service IngestService
}

func NewIngestHandler(service IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

type ingestBody struct {
	Path   string `json:"path"`
	Prefix string `json:"prefix"`
}

func (h *IngestHandler) ListDriveFiles(c *gin.Context) {
	files, err := h.service.ListDriveFiles(c.Request.Context(), strings.TrimSpace(c.Query("path")))
	if err != nil {
		respondError(c, "failed to list drive files", err)
		return
	}
	if files == nil {
		files = []*drive.File{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// IngestDrive loads the Drive folder named by path. Runs synchronously so
// the caller sees row counts.
func (h *IngestHandler) IngestDrive(c *gin.Context) {
	var body ingestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	summary, err := h.service.IngestDrive(c.Request.Context(), strings.TrimSpace(body.Path))
	if err != nil {
		respondError(c, "failed to ingest drive folder", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *IngestHandler) IngestStorage(c *gin.Context) {
	var body ingestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	prefix := strings.TrimSpace(body.Prefix)
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefix is required"})
		return
	}

	summary, err := h.service.IngestPrefix(c.Request.Context(), prefix)
	if err != nil {
		respondError(c, "failed to ingest storage prefix", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
