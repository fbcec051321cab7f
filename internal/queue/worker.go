package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// ErrStopped is returned when enqueueing on a stopped pool.
var ErrStopped = errors.New("worker pool stopped")

// Runner produces the transcript of one recording.
type Runner interface {
	Run(ctx context.Context, audioPath string) (types.Transcript, error)
}

// Uploader copies saved transcript files to remote storage.
type Uploader interface {
	Upload(ctx context.Context, requestName string, files storage.SavedFiles) (string, error)
}

// Options configures a WorkerPool. Drive and DB are optional.
type Options struct {
	Workers    int
	QueueSize  int
	Local      *storage.LocalStorage
	Drive      Uploader
	DB         *storage.MetadataDB
	RetryDelay time.Duration
	// Retention is how long finished jobs stay visible to Get.
	Retention time.Duration
}

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue chan *Job
	runner   Runner
	opts     Options
	now      func() time.Time

	// mu guards stopped and keeps Stop from closing the queue mid-send
	mu      sync.RWMutex
	stopped bool

	jobsMu sync.Mutex
	jobs   map[string]*Job

	wg sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(runner Runner, opts Options) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &WorkerPool{
		jobQueue: make(chan *Job, opts.QueueSize),
		runner:   runner,
		opts:     opts,
		now:      time.Now,
		jobs:     make(map[string]*Job),
	}
}

// Start launches the workers. Jobs run under ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	log.Info().Int("workers", wp.opts.Workers).Msg("starting worker pool")
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go func(id int) {
			defer wp.wg.Done()
			wp.worker(ctx, id)
		}(i)
	}
}

// EnqueueJob adds a job to the queue, blocking while the queue is full.
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}
	wp.track(job)
	wp.jobQueue <- job
	log.Info().Str("job", job.ID).Str("source", job.SourceType).Str("name", job.RequestName).Msg("job enqueued")
	return nil
}

// Get returns a job by id.
func (wp *WorkerPool) Get(id string) (*Job, bool) {
	wp.jobsMu.Lock()
	defer wp.jobsMu.Unlock()
	job, ok := wp.jobs[id]
	return job, ok
}

// track registers a job and forgets finished jobs older than the
// retention.
func (wp *WorkerPool) track(job *Job) {
	wp.jobsMu.Lock()
	defer wp.jobsMu.Unlock()
	cutoff := wp.now().Add(-wp.opts.Retention)
	for id, j := range wp.jobs {
		if j.finishedBefore(cutoff) {
			delete(wp.jobs, id)
		}
	}
	wp.jobs[job.ID] = job
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug().Int("worker", id).Msg("worker started")

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Int("worker", id).Str("job", job.ID).Interface("panic", r).
						Str("stack", string(debug.Stack())).Msg("panic processing job")
					job.fail(fmt.Errorf("worker panic: %v", r))
					wp.cleanupSource(job)
				}
			}()

			wp.processJob(ctx, id, job)
		}()
	}
}

// processJob runs the pipeline and stores its outputs
func (wp *WorkerPool) processJob(ctx context.Context, workerID int, job *Job) {
	logger := log.With().Int("worker", workerID).Str("job", job.ID).Logger()
	defer wp.cleanupSource(job)

	if err := ctx.Err(); err != nil {
		job.fail(err)
		return
	}
	logger.Info().Str("file", job.FilePath).Msg("processing job")
	job.setStatus(types.StatusProcessing)

	// Step 1: pipeline
	t, err := wp.runner.Run(ctx, job.FilePath)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline failed")
		job.fail(err)
		return
	}

	// Step 2: save locally
	var files storage.SavedFiles
	if wp.opts.Local != nil {
		if job.SourceType == types.SourceBatch {
			files, err = wp.opts.Local.SaveAlongside(t)
		} else {
			files, err = wp.opts.Local.SaveTranscript(job.RequestName, t)
		}
		if err != nil {
			logger.Error().Err(err).Msg("local save failed")
			job.fail(fmt.Errorf("local save failed: %w", err))
			return
		}
	}

	// Step 3: upload to Google Drive (with retry)
	var driveURL string
	if wp.opts.Drive != nil && files.Interchange != "" {
		driveURL = wp.upload(ctx, logger, job, files)
	}

	// Step 4: metadata
	if wp.opts.DB != nil {
		err := wp.opts.DB.SaveTranscript(storage.TranscriptRecord{
			JobID:        job.ID,
			RequestName:  job.RequestName,
			SourceType:   job.SourceType,
			GDriveURL:    driveURL,
			LocalPath:    files.Interchange,
			MarkdownPath: files.Markdown,
			Duration:     t.Length,
			SpeakerCount: len(t.Speakers()),
			PhraseCount:  len(t.Phrases),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("database save failed")
		}
	}

	job.complete(t, files, driveURL)
	logger.Info().Str("local", files.Interchange).Str("gdrive", driveURL).Int("phrases", len(t.Phrases)).Msg("job completed")
}

func (wp *WorkerPool) upload(ctx context.Context, logger zerolog.Logger, job *Job, files storage.SavedFiles) string {
	const attempts = 3
	for attempt := 1; attempt <= attempts; attempt++ {
		url, err := wp.opts.Drive.Upload(ctx, job.RequestName, files)
		if err == nil {
			return url
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("google drive upload failed")
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt*attempt) * wp.opts.RetryDelay):
		case <-ctx.Done():
			return ""
		}
	}
	logger.Warn().Msg("google drive upload gave up, transcript kept locally only")
	return ""
}

// cleanupSource removes uploaded or downloaded sources; batch inputs stay.
func (wp *WorkerPool) cleanupSource(job *Job) {
	if job.SourceType == types.SourceBatch || job.FilePath == "" {
		return
	}
	if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("file", job.FilePath).Msg("failed to cleanup temp file")
	}
}
