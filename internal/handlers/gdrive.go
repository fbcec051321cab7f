package handlers

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// DownloadFunc stores the Drive file fileID at dst.
type DownloadFunc func(ctx context.Context, fileID, dst string) error

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	download   DownloadFunc
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(workerPool *queue.WorkerPool, tempDir string, download DownloadFunc) *GDriveHandler {
	return &GDriveHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		download:   download,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle downloads the linked recording and queues it
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return apiError(fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return apiError(fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}
	if req.Name == "" {
		req.Name = "gdrive_" + fileID
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, jobID+".audio")

	log.Info().Str("file_id", fileID).Str("job", jobID).Msg("downloading from google drive")
	if err := h.download(c.UserContext(), fileID, tempPath); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("google drive download failed")
		return apiError(fiber.StatusBadRequest, "File not accessible (may be private or doesn't exist)", "ERR_FILE_NOT_ACCESSIBLE")
	}

	job := queue.NewJob(jobID, req.Name, types.SourceGDrive, tempPath)
	if err := h.workerPool.EnqueueJob(job); err != nil {
		return enqueueError(err)
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"message": "Google Drive file downloaded, processing started",
	})
}

var (
	driveFilePath = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParam  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareID   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// extractGDriveFileID accepts /file/d/{ID}/view links, ?id={ID} links and
// bare ids.
func extractGDriveFileID(url string) string {
	for _, re := range []*regexp.Regexp{driveFilePath, driveIDParam, driveBareID} {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
