package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/cleanup"
	"github.com/codebuildervaibhav/speaker-transcript/internal/handlers"
	"github.com/codebuildervaibhav/speaker-transcript/internal/logging"
	"github.com/codebuildervaibhav/speaker-transcript/internal/pipeline"
	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
)

type ServeCMD struct {
	Address string `env:"TRANSCRIPT_ADDRESS" help:"Bind address, overrides server.host and server.port"`
	NoDrive bool   `help:"Do not connect to Google Drive even when credentials exist"`
}

func (s *ServeCMD) Run(ctx *Globals) error {
	cfg, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logBuffer := logging.NewLogBuffer(1000)
	if err := logging.Setup(ctx.LogLevel, ctx.LogFormat, logBuffer); err != nil {
		return err
	}

	log.Info().Msg("initializing components")

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	runCtx, stop := signalContext()
	defer stop()
	// jobs and uploads keep running after the signal so queued work can
	// finish while the server drains
	jobCtx := context.WithoutCancel(runCtx)

	opts := queue.Options{
		Workers: cfg.Workers.Count,
		Local:   storage.NewLocalStorage(cfg.Storage.OutputDir, storage.Outputs{Markdown: true, Compact: true}),
		DB:      db,
	}
	download := handlers.DownloadFunc(storage.DownloadPublic)
	if driveClient := s.drive(jobCtx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName); driveClient != nil {
		opts.Drive = driveClient
		download = driveClient.Download
	}

	workerPool := queue.NewWorkerPool(p, opts)
	workerPool.Start(jobCtx)
	defer workerPool.Stop()

	cleanupScheduler := cleanup.NewScheduler(cfg.Storage.TempDir, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := handlers.NewApp(handlers.Server{
		Pool:          workerPool,
		DB:            db,
		Logs:          logBuffer,
		TempDir:       cfg.Storage.TempDir,
		MaxFileSizeMB: cfg.Limits.MaxFileSizeMB,
		Download:      download,
		FeedInterval:  500 * time.Millisecond,
	})

	addr := s.Address
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	go func() {
		<-runCtx.Done()
		log.Info().Msg("shutting down gracefully")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("address", addr).Str("recognizer", cfg.Models.Recognizer.Name).
		Str("diarizer", cfg.Models.Diarizer.Name).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// drive connects to Google Drive when credentials are present. Transcripts
// stay local-only otherwise.
func (s *ServeCMD) drive(ctx context.Context, credentialsFile, tokenFile, folderName string) *storage.DriveClient {
	if s.NoDrive {
		log.Info().Msg("google drive disabled, saving locally only")
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		log.Info().Str("file", credentialsFile).Msg("google drive credentials not found, saving locally only")
		return nil
	}
	client, err := storage.NewDriveClient(ctx, credentialsFile, tokenFile, folderName)
	if err != nil {
		log.Warn().Err(err).Msg("google drive not available, transcripts will only be saved locally")
		return nil
	}
	log.Info().Str("folder", folderName).Msg("google drive integration enabled")
	return client
}
