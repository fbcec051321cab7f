package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	maxSizeMB  int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		maxSizeMB:  maxSizeMB,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apiError(fiber.StatusBadRequest, "No file uploaded", "ERR_NO_FILE")
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return apiError(fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return apiError(fiber.StatusBadRequest, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, tempPath); err != nil {
		log.Error().Err(err).Msg("failed to save uploaded file")
		return apiError(fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}

	job := queue.NewJob(jobID, requestName, types.SourceUpload, tempPath)
	if err := h.workerPool.EnqueueJob(job); err != nil {
		return enqueueError(err)
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"message": "File uploaded successfully, processing started",
	})
}

func enqueueError(err error) error {
	if errors.Is(err, queue.ErrStopped) {
		return apiError(fiber.StatusServiceUnavailable, "Server is shutting down", "ERR_UNAVAILABLE")
	}
	return apiError(fiber.StatusInternalServerError, err.Error(), "ERR_ENQUEUE_FAILED")
}
