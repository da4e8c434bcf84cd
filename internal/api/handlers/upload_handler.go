package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads *service.UploadService
}

func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload accepts one workbook in the multipart field "file" and queues it.
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	var snapshot *time.Time
	if raw := strings.TrimSpace(c.PostForm("snapshot_date")); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot_date must be YYYY-MM-DD"})
			return
		}
		snapshot = &t
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	res, err := h.uploads.Accept(c.Request.Context(), service.UploadRequest{
		Name:         fh.Filename,
		Reader:       f,
		SnapshotDate: snapshot,
	})
	if errors.Is(err, domain.ErrUnknownFormat) && res != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"upload_id": res.UploadID,
			"family":    res.Family.String(),
			"status":    res.Status,
		})
		return
	}
	if err != nil {
		writeError(c, err, "failed to accept upload")
		return
	}

	c.JSON(http.StatusAccepted, res)
}

func (h *UploadHandler) Status(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	upload, steps, err := h.uploads.Status(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to fetch upload status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": upload, "steps": steps})
}

func (h *UploadHandler) History(c *gin.Context) {
	limit := parsePositiveIntWithDefault(c.Query("limit"), 50)
	uploads, err := h.uploads.History(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err, "failed to fetch upload history")
		return
	}
	c.JSON(http.StatusOK, uploads)
}

func (h *UploadHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.uploads.Cancel(c.Request.Context(), id); err != nil {
		writeError(c, err, "failed to cancel upload")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"upload_id": id, "message": "cancellation requested"})
}

func (h *UploadHandler) Reprocess(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	next, err := h.uploads.Reprocess(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to reprocess upload")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"upload_id": next.ID, "reprocess_of": id, "status": next.Status})
}
