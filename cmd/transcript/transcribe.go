package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/codebuildervaibhav/speaker-transcript/internal/cleanup"
	"github.com/codebuildervaibhav/speaker-transcript/internal/pipeline"
	"github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

const (
	onErrorAbort    = "abort"
	onErrorContinue = "continue"
)

type TranscribeCMD struct {
	Paths []string `arg:"" help:"Recordings to transcribe"`

	Workers  int    `short:"w" help:"Recordings processed in parallel (defaults to workers.count)"`
	OnError  string `default:"abort" enum:"abort,continue" help:"What to do when a recording fails [${enum}]"`
	Markdown bool   `help:"Also write <input>.md"`
	Compact  bool   `help:"Also write <input>.compact.json"`
	Fusion   string `help:"Override pipeline.fusion_mode (strict or nearest)"`
}

func (t *TranscribeCMD) Run(ctx *Globals) error {
	for _, path := range t.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
	}

	cfg, err := ctx.loadConfig()
	if err != nil {
		return err
	}
	if t.Fusion != "" {
		cfg.Pipeline.FusionMode = t.Fusion
	}
	workers := cfg.Workers.Count
	if t.Workers > 0 {
		workers = t.Workers
	}

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	sigCtx, stop := signalContext()
	defer stop()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	pool := queue.NewWorkerPool(p, queue.Options{
		Workers:   workers,
		QueueSize: len(t.Paths),
		Local: storage.NewLocalStorage(cfg.Storage.OutputDir, storage.Outputs{
			Markdown: t.Markdown,
			Compact:  t.Compact,
		}),
	})
	pool.Start(runCtx)
	defer pool.Stop()

	jobs := make([]*queue.Job, 0, len(t.Paths))
	for _, path := range t.Paths {
		job := queue.NewJob(uuid.NewString(), filepath.Base(path), types.SourceBatch, path)
		if err := pool.EnqueueJob(job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("transcribing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	finished := make(chan *queue.Job)
	for _, job := range jobs {
		go func() {
			<-job.Done()
			finished <- job
		}()
	}

	var (
		failed int
		abort  error
	)
	for range jobs {
		job := <-finished
		_ = bar.Add(1)

		if err := job.Err(); err != nil {
			failed++
			log.Error().Err(err).Str("file", job.FilePath).Str("kind", errorKind(err)).Str("policy", t.OnError).
				Msg("transcription failed")
			if t.OnError == onErrorAbort && abort == nil {
				abort = fmt.Errorf("%s: %w", job.FilePath, err)
				cancel()
			}
			continue
		}
		_, files, _ := job.Result()
		log.Info().Str("file", job.FilePath).Str("output", files.Interchange).Msg("transcribed")
	}

	if abort != nil {
		return abort
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", failed, len(jobs))
	}
	log.Info().Int("recordings", len(jobs)).Msg("all recordings transcribed")
	return nil
}
