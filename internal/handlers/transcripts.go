package handlers

import (
	"errors"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/output"
	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// TranscriptHandler serves job state and finished transcripts.
type TranscriptHandler struct {
	workerPool *queue.WorkerPool
	db         *storage.MetadataDB
}

// NewTranscriptHandler creates a new transcript handler
func NewTranscriptHandler(workerPool *queue.WorkerPool, db *storage.MetadataDB) *TranscriptHandler {
	return &TranscriptHandler{workerPool: workerPool, db: db}
}

// Job returns the state of a queued, running or finished job.
func (h *TranscriptHandler) Job(c *fiber.Ctx) error {
	job, ok := h.workerPool.Get(c.Params("id"))
	if !ok {
		return apiError(fiber.StatusNotFound, "Job not found", "ERR_NOT_FOUND")
	}
	return c.JSON(job.State())
}

// List returns the newest transcripts; ?limit= defaults to 50.
func (h *TranscriptHandler) List(c *fiber.Ctx) error {
	transcripts, err := h.db.ListTranscripts(limit(c))
	if err != nil {
		return apiError(fiber.StatusInternalServerError, err.Error(), "ERR_DATABASE")
	}
	return c.JSON(transcripts)
}

// Evaluations returns the newest evaluation runs.
func (h *TranscriptHandler) Evaluations(c *fiber.Ctx) error {
	runs, err := h.db.ListEvaluations(limit(c))
	if err != nil {
		return apiError(fiber.StatusInternalServerError, err.Error(), "ERR_DATABASE")
	}
	return c.JSON(runs)
}

// Interchange sends the stored annotation document.
func (h *TranscriptHandler) Interchange(c *fiber.Ctx) error {
	rec, err := h.record(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(rec.LocalPath)
	if err != nil {
		return apiError(fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(data)
}

// Markdown renders the transcript as a speaker-headed document.
func (h *TranscriptHandler) Markdown(c *fiber.Ctx) error {
	phrases, err := h.phrases(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(output.Markdown(phrases))
}

// Text renders one timestamped line per phrase.
func (h *TranscriptHandler) Text(c *fiber.Ctx) error {
	phrases, err := h.phrases(c)
	if err != nil {
		return err
	}
	return c.SendString(output.Plain(phrases))
}

func (h *TranscriptHandler) record(c *fiber.Ctx) (storage.TranscriptRecord, error) {
	rec, err := h.db.GetTranscript(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return rec, apiError(fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		return rec, apiError(fiber.StatusInternalServerError, err.Error(), "ERR_DATABASE")
	}
	if rec.LocalPath == "" {
		return rec, apiError(fiber.StatusNotFound, "Transcript file path not found", "ERR_NOT_FOUND")
	}
	return rec, nil
}

func (h *TranscriptHandler) phrases(c *fiber.Ctx) ([]types.Phrase, error) {
	rec, err := h.record(c)
	if err != nil {
		return nil, err
	}
	entries, err := interchange.DecodeFile(rec.LocalPath)
	if err != nil {
		return nil, apiError(fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}
	for _, e := range entries {
		return e.Phrases, nil
	}
	return []types.Phrase{}, nil
}

func limit(c *fiber.Ctx) int {
	n, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}
