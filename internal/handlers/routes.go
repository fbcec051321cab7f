package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/speaker-transcript/internal/logging"
	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
)

// Version is reported by /health.
const Version = "1.0.0"

// Server bundles what the HTTP routes need.
type Server struct {
	Pool          *queue.WorkerPool
	DB            *storage.MetadataDB
	Logs          *logging.LogBuffer
	TempDir       string
	MaxFileSizeMB int
	Download      DownloadFunc
	FeedInterval  time.Duration
}

// NewApp builds the fiber application with every route registered.
func NewApp(s Server) *fiber.App {
	bodyLimit := s.MaxFileSizeMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(requestLogger)

	download := s.Download
	if download == nil {
		download = storage.DownloadPublic
	}
	upload := NewUploadHandler(s.Pool, s.TempDir, s.MaxFileSizeMB)
	gdrive := NewGDriveHandler(s.Pool, s.TempDir, download)
	feed := NewJobFeedHandler(s.Pool, s.FeedInterval)
	transcripts := NewTranscriptHandler(s.Pool, s.DB)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
		})
	})

	app.Post("/upload", upload.Handle)
	app.Post("/gdrive", gdrive.Handle)

	app.Get("/jobs/:id", transcripts.Job)
	app.Use("/ws", feed.Upgrade)
	app.Get("/ws/jobs/:id", websocket.New(feed.Handle))

	app.Get("/transcripts", transcripts.List)
	app.Get("/transcripts/:id/markdown", transcripts.Markdown)
	app.Get("/transcripts/:id/text", transcripts.Text)
	app.Get("/transcripts/:id/interchange", transcripts.Interchange)
	app.Get("/evaluations", transcripts.Evaluations)

	app.Get("/logs", func(c *fiber.Ctx) error {
		logs := []string{}
		if s.Logs != nil {
			logs = s.Logs.GetLogs()
		}
		return c.JSON(fiber.Map{"logs": logs})
	})

	return app
}

// APIError is rendered as {"error": ..., "code": ...} by ErrorHandler.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func apiError(status int, message, code string) error {
	return &APIError{Status: status, Message: message, Code: code}
}

// ErrorHandler renders handler errors as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(apiErr)
	}
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(&APIError{Message: err.Error(), Code: "ERR_INTERNAL"})
}
