package queue_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/codebuildervaibhav/speaker-transcript/internal/queue"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type runnerFunc func(ctx context.Context, path string) (types.Transcript, error)

func (f runnerFunc) Run(ctx context.Context, path string) (types.Transcript, error) {
	return f(ctx, path)
}

type flakyUploader struct {
	failures int32
	calls    atomic.Int32
}

func (u *flakyUploader) Upload(_ context.Context, _ string, files storage.SavedFiles) (string, error) {
	if u.calls.Add(1) <= u.failures {
		return "", errors.New("quota exceeded")
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

func transcriptOf(path string) types.Transcript {
	return types.Transcript{
		AudioPath: path,
		Length:    4,
		Phrases:   []types.Phrase{{Start: 0, End: 4, Text: "hi", Speaker: "Speaker 1"}},
	}
}

var _ = Describe("WorkerPool", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	source := func(name string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte("audio"), 0644)).To(Succeed())
		return path
	}

	It("saves batch output next to the input and keeps the input", func() {
		pool := NewWorkerPool(runnerFunc(func(_ context.Context, p string) (types.Transcript, error) {
			return transcriptOf(p), nil
		}), Options{Workers: 2, Local: storage.NewLocalStorage("", storage.Outputs{Markdown: true})})
		pool.Start(ctx)
		defer pool.Stop()

		input := source("talk.mp3")
		job := NewJob("j1", "talk.mp3", types.SourceBatch, input)
		Expect(pool.EnqueueJob(job)).To(Succeed())
		Expect(job.Wait(ctx)).To(Succeed())

		Expect(job.Status()).To(Equal(types.StatusCompleted))
		_, files, ok := job.Result()
		Expect(ok).To(BeTrue())
		Expect(files.Interchange).To(Equal(input + ".json"))
		Expect(files.Markdown).To(BeAnExistingFile())
		Expect(input).To(BeAnExistingFile())

		got, found := pool.Get("j1")
		Expect(found).To(BeTrue())
		Expect(got.State().Phrases).To(Equal(1))
	})

	It("retries drive uploads and records metadata", func() {
		db, err := storage.NewMetadataDB(filepath.Join(dir, "meta.db"))
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()
		uploader := &flakyUploader{failures: 2}

		pool := NewWorkerPool(runnerFunc(func(_ context.Context, p string) (types.Transcript, error) {
			return transcriptOf(p), nil
		}), Options{
			Local:      storage.NewLocalStorage(filepath.Join(dir, "out"), storage.Outputs{}),
			Drive:      uploader,
			DB:         db,
			RetryDelay: time.Millisecond,
		})
		pool.Start(ctx)
		defer pool.Stop()

		input := source("upload.webm")
		job := NewJob("j2", "standup", types.SourceUpload, input)
		Expect(pool.EnqueueJob(job)).To(Succeed())
		Expect(job.Wait(ctx)).To(Succeed())

		Expect(uploader.calls.Load()).To(Equal(int32(3)))
		Expect(job.State().GDriveURL).To(ContainSubstring("drive.google.com"))
		Expect(input).ToNot(BeAnExistingFile())

		rec, err := db.GetTranscript("j2")
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.RequestName).To(Equal("standup"))
		Expect(rec.PhraseCount).To(Equal(1))
		Expect(rec.LocalPath).To(BeAnExistingFile())
	})

	It("marks failed jobs and writes nothing", func() {
		boom := errors.New("diarizer exploded")
		pool := NewWorkerPool(runnerFunc(func(context.Context, string) (types.Transcript, error) {
			return types.Transcript{}, boom
		}), Options{Local: storage.NewLocalStorage("", storage.Outputs{})})
		pool.Start(ctx)
		defer pool.Stop()

		input := source("bad.wav")
		job := NewJob("j3", "bad.wav", types.SourceBatch, input)
		Expect(pool.EnqueueJob(job)).To(Succeed())
		Expect(job.Wait(ctx)).To(MatchError(boom))
		Expect(job.Status()).To(Equal(types.StatusFailed))
		Expect(job.State().Error).To(Equal("diarizer exploded"))
		Expect(input + ".json").ToNot(BeAnExistingFile())
	})

	It("recovers from panics in the runner", func() {
		pool := NewWorkerPool(runnerFunc(func(context.Context, string) (types.Transcript, error) {
			panic("nil model")
		}), Options{})
		pool.Start(ctx)
		defer pool.Stop()

		job := NewJob("j4", "x", types.SourceUpload, source("x.wav"))
		Expect(pool.EnqueueJob(job)).To(Succeed())
		Expect(job.Wait(ctx)).To(MatchError(ContainSubstring("worker panic")))
	})

	It("drains queued jobs on stop and refuses new ones", func() {
		var ran atomic.Int32
		pool := NewWorkerPool(runnerFunc(func(_ context.Context, p string) (types.Transcript, error) {
			ran.Add(1)
			return transcriptOf(p), nil
		}), Options{Workers: 1})
		pool.Start(ctx)

		jobs := []*Job{
			NewJob("a", "a", types.SourceBatch, "a.wav"),
			NewJob("b", "b", types.SourceBatch, "b.wav"),
		}
		for _, j := range jobs {
			Expect(pool.EnqueueJob(j)).To(Succeed())
		}
		pool.Stop()

		Expect(ran.Load()).To(Equal(int32(2)))
		for _, j := range jobs {
			Eventually(j.Done()).Should(BeClosed())
		}
		Expect(pool.EnqueueJob(NewJob("c", "c", types.SourceBatch, "c.wav"))).To(MatchError(ErrStopped))
	})
	It("accepts jobs from many goroutines at once", func() {
		pool := NewWorkerPool(runnerFunc(func(_ context.Context, p string) (types.Transcript, error) {
			return transcriptOf(p), nil
		}), Options{Workers: 4, QueueSize: 16})
		pool.Start(ctx)
		defer pool.Stop()

		const n = 200
		var wg sync.WaitGroup
		jobs := make([]*Job, n)
		for i := range n {
			jobs[i] = NewJob(fmt.Sprintf("job-%d", i), "x", types.SourceBatch, "x.wav")
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(pool.EnqueueJob(jobs[i])).To(Succeed())
				_, _ = pool.Get(jobs[i].ID)
			}()
		}
		wg.Wait()

		for _, j := range jobs {
			Eventually(j.Done()).Should(BeClosed())
			got, found := pool.Get(j.ID)
			Expect(found).To(BeTrue())
			Expect(got).To(BeIdenticalTo(j))
		}
	})

	It("forgets finished jobs after the retention period", func() {
		pool := NewWorkerPool(runnerFunc(func(_ context.Context, p string) (types.Transcript, error) {
			return transcriptOf(p), nil
		}), Options{Workers: 1, Retention: 10 * time.Millisecond})
		pool.Start(ctx)
		defer pool.Stop()

		old := NewJob("old", "old", types.SourceBatch, "old.wav")
		Expect(pool.EnqueueJob(old)).To(Succeed())
		Expect(old.Wait(ctx)).To(Succeed())
		time.Sleep(50 * time.Millisecond)

		Expect(pool.EnqueueJob(NewJob("new", "new", types.SourceBatch, "new.wav"))).To(Succeed())
		_, found := pool.Get("old")
		Expect(found).To(BeFalse())
		_, found = pool.Get("new")
		Expect(found).To(BeTrue())
	})
})
