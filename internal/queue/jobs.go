package queue

import (
	"context"
	"sync"
	"time"

	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

// Job represents one recording to transcribe
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	CreatedAt   time.Time

	mu         sync.Mutex
	status     string
	err        error
	result     *types.Transcript
	files      storage.SavedFiles
	driveURL   string
	finishedAt time.Time
	done       chan struct{}
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, filePath string) *Job {
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		CreatedAt:   time.Now(),
		status:      types.StatusQueued,
		done:        make(chan struct{}),
	}
}

// JobState is a point-in-time copy of a job, safe to serialise.
type JobState struct {
	ID          string             `json:"job_id"`
	RequestName string             `json:"request_name"`
	SourceType  string             `json:"source_type"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Files       storage.SavedFiles `json:"files"`
	GDriveURL   string             `json:"gdrive_url,omitempty"`
	Phrases     int                `json:"phrases"`
	CreatedAt   time.Time          `json:"created_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

// State returns the current state of the job.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := JobState{
		ID:          j.ID,
		RequestName: j.RequestName,
		SourceType:  j.SourceType,
		Status:      j.status,
		Files:       j.files,
		GDriveURL:   j.driveURL,
		CreatedAt:   j.CreatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.result != nil {
		s.Phrases = len(j.result.Phrases)
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// Status returns the job status
func (j *Job) Status() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the failure of a finished job, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Result returns the transcript of a completed job.
func (j *Job) Result() (types.Transcript, storage.SavedFiles, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return types.Transcript{}, storage.SavedFiles{}, false
	}
	return *j.result, j.files, true
}

// Done is closed once the job completed or failed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) setStatus(status string) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()
}

func (j *Job) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// finishedBefore reports whether the job finished before t. Running jobs
// never have.
func (j *Job) finishedBefore(t time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.finishedAt.IsZero() && j.finishedAt.Before(t)
}

func (j *Job) complete(t types.Transcript, files storage.SavedFiles, driveURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished() {
		return
	}
	j.status = types.StatusCompleted
	j.result = &t
	j.files = files
	j.driveURL = driveURL
	j.finishedAt = time.Now()
	close(j.done)
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished() {
		return
	}
	j.status = types.StatusFailed
	j.err = err
	j.finishedAt = time.Now()
	close(j.done)
}
