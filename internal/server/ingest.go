package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dormmenu/internal/ingest"
)

// maxBatchBytes caps an uploaded month file; a full month is a few kilobytes.
const maxBatchBytes = 1 << 20

// IngestMenus reconciles a YAML or JSON month batch. Per-day failures are in the report, not the status.
func (s *Server) IngestMenus(c *gin.Context) {
	if s.ingestSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	batch, err := ingest.ParseBatch(http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchBytes))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if id, ok := identityFrom(c); ok {
		batch.AuthorID = id.UserID
	}

	report, err := s.ingestSvc.Reconcile(c.Request.Context(), batch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
