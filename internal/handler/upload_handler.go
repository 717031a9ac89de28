package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clipstream/internal/media"
	"clipstream/internal/netquality"
	"clipstream/internal/queue"
	"clipstream/internal/transport/httpdto"
	clipstream_errors "clipstream/pkg/errors"
	"clipstream/pkg/logger"
)

type UploadHandler struct {
	queue   *queue.Queue
	monitor netquality.Monitor
	log     *logger.Logger
}

func NewUploadHandler(q *queue.Queue, monitor netquality.Monitor, log *logger.Logger) *UploadHandler {
	return &UploadHandler{queue: q, monitor: monitor, log: log}
}

// Submit accepts a multipart form with the media file plus owner_id, caption
// and an optional kind. Returns 202 with the task id; the transfer itself
// runs in the background.
func (h *UploadHandler) Submit(c *gin.Context) {
	ownerID, err := uuid.Parse(c.PostForm("owner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid owner_id", "INVALID_REQUEST"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("file is required", "INVALID_REQUEST"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file", "INVALID_REQUEST"))
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file", "INVALID_REQUEST"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	kind := media.Kind(c.PostForm("kind"))
	caption := c.PostForm("caption")

	taskID, err := h.queue.Submit(c.Request.Context(), ownerID, payload, contentType, caption, kind)
	if err != nil {
		status := http.StatusBadRequest
		code := "INVALID_REQUEST"
		if errors.Is(err, clipstream_errors.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
			code = "TOO_LARGE"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		return
	}

	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(httpdto.SubmitUploadResponse{TaskID: taskID.String()}))
}

func (h *UploadHandler) Retry(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid task id", "INVALID_REQUEST"))
		return
	}
	if err := h.queue.Retry(c.Request.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, clipstream_errors.ErrNotFound):
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("task not found", "NOT_FOUND"))
		case errors.Is(err, clipstream_errors.ErrInvalidTransition):
			c.JSON(http.StatusConflict, httpdto.NewErrorResponse("task is not in a failed state", "INVALID_STATE"))
		default:
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		}
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *UploadHandler) Cancel(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid task id", "INVALID_REQUEST"))
		return
	}
	if err := h.queue.Cancel(c.Request.Context(), taskID); err != nil {
		if errors.Is(err, clipstream_errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("task not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *UploadHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.QueueStatusResponse{
		Counts: h.queue.Status(),
		Tasks:  h.queue.Snapshots(),
	}))
}

// Estimate previews cost and duration for a payload size against the current
// link sample, without starting anything.
func (h *UploadHandler) Estimate(c *gin.Context) {
	size, err := strconv.ParseInt(c.Query("size"), 10, 64)
	if err != nil || size < 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid size", "INVALID_REQUEST"))
		return
	}
	est := netquality.EstimateUpload(size, h.monitor.Sample(c.Request.Context()))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UploadEstimateResponse{
		EstimatedSeconds: est.EstimatedSeconds,
		RecommendProceed: est.RecommendProceed,
		WarningMessage:   est.WarningMessage,
		DataUsageMB:      est.DataUsageMB,
	}))
}
