package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// JobFeedHandler pushes job state over a websocket until the job finishes.
type JobFeedHandler struct {
	workerPool *queue.WorkerPool
	interval   time.Duration
}

// NewJobFeedHandler creates a feed polling job state every interval
func NewJobFeedHandler(workerPool *queue.WorkerPool, interval time.Duration) *JobFeedHandler {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &JobFeedHandler{
		workerPool: workerPool,
		interval:   interval,
	}
}

// Upgrade rejects requests that are not websocket upgrades
func (h *JobFeedHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle writes one JSON message per status change
func (h *JobFeedHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	job, ok := h.workerPool.Get(id)
	if !ok {
		c.WriteJSON(fiber.Map{"error": "Job not found", "code": "ERR_NOT_FOUND"})
		return
	}
	log.Debug().Str("job", id).Msg("job feed connected")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := ""
	for {
		state := job.State()
		if state.Status != last {
			if err := c.WriteJSON(state); err != nil {
				log.Debug().Err(err).Str("job", id).Msg("job feed closed")
				return
			}
			last = state.Status
		}
		if state.Status == types.StatusCompleted || state.Status == types.StatusFailed {
			return
		}
		select {
		case <-job.Done():
		case <-ticker.C:
		}
	}
}
