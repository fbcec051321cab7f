package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler removes old uploads and normalised audio from the temp directory
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(max(intervalMinutes, 1)) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval.
func (s *Scheduler) Start() {
	log.Info().Str("dir", s.tempDir).Msg("running initial temp file cleanup")
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case now := <-ticker.C:
				s.Sweep(now)
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Info().Dur("interval", s.interval).Dur("max_age", s.maxAge).Msg("cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Info().Msg("cleanup scheduler stopped")
}

// Sweep deletes files older than the maximum age and returns how many were
// removed.
func (s *Scheduler) Sweep(now time.Time) int {
	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("failed to delete old temp file")
			return nil
		}
		deletedCount++
		deletedSize += info.Size()
		log.Debug().Str("file", filepath.Base(path)).Dur("age", age.Round(time.Hour)).Int64("kb", info.Size()/1024).Msg("deleted old temp file")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("error during cleanup")
	}
	deletedCount += s.sweepDirs(now)

	if deletedCount > 0 {
		log.Info().Int("files", deletedCount).Float64("mb", float64(deletedSize)/(1024*1024)).Msg("cleanup complete")
	}
	return deletedCount
}

// sweepDirs removes stale empty work directories left behind by
// normalisation runs that never finished.
func (s *Scheduler) sweepDirs(now time.Time) int {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= s.maxAge {
			continue
		}
		// os.Remove refuses non-empty directories
		if os.Remove(filepath.Join(s.tempDir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Debug().Str("dir", tempDir).Msg("temp directory ready")
	return nil
}
