package cleanup_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/codebuildervaibhav/speaker-transcript/internal/cleanup"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"
)

const staleDoc = `[{"data":{"audio":"clips/0.wav"},"id":1,"annotations":[{"id":7,"result":[` +
	`{"value":{"start":10,"end":11,"labels":["Speaker 1"]},"original_length":10,"from_name":"labels","to_name":"audio","type":"labels","id":"0"},` +
	`{"value":{"start":2.5,"end":4,"labels":["Speaker 2"]},"original_length":10,"from_name":"labels","to_name":"audio","type":"labels","id":"1"}` +
	`],"lead_time":3.2}],"meta":{"keep":"me"}}]`

var _ = Describe("CleanDocument", func() {
	It("drops a record starting exactly at the original length and keeps the rest", func() {
		out, stats, err := CleanDocument([]byte(staleDoc))
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Dropped).To(Equal(1))
		Expect(stats.Kept).To(Equal(1))

		result := gjson.GetBytes(out, "0.annotations.0.result")
		Expect(result.Array()).To(HaveLen(1))
		Expect(result.Array()[0].Raw).To(Equal(`{"value":{"start":2.5,"end":4,"labels":["Speaker 2"]},"original_length":10,"from_name":"labels","to_name":"audio","type":"labels","id":"1"}`))
		Expect(gjson.GetBytes(out, "0.annotations.0.lead_time").Float()).To(Equal(3.2))
		Expect(gjson.GetBytes(out, "0.meta.keep").String()).To(Equal("me"))
	})

	It("keeps records whose recording length is unknown", func() {
		doc := `[{"predictions":[{"result":[{"value":{"start":3},"original_length":0},{"value":{"start":2}}]}]}]`
		out, stats, err := CleanDocument([]byte(doc))
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Dropped).To(Equal(0))
		Expect(string(out)).To(Equal(doc))
	})

	It("sweeps predictions and the legacy prediction list", func() {
		doc := `[{"data":{"audio":"a"},"predictions":[{"result":[{"value":{"start":5},"original_length":4},{"value":{"start":1},"original_length":4}]}],` +
			`"prediction":[{"value":{"start":9},"original_length":4},{"value":{"start":0},"original_length":4}]}]`
		out, stats, err := CleanDocument([]byte(doc))
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Dropped).To(Equal(2))
		Expect(gjson.GetBytes(out, "0.predictions.0.result.#").Int()).To(Equal(int64(1)))
		Expect(gjson.GetBytes(out, "0.prediction.#").Int()).To(Equal(int64(1)))
		Expect(gjson.GetBytes(out, "0.prediction.0.value.start").Float()).To(Equal(0.0))
	})

	It("keeps records without an original length", func() {
		doc := `[{"annotations":[{"result":[{"value":{"start":100}}]}]}]`
		out, stats, err := CleanDocument([]byte(doc))
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Dropped).To(BeZero())
		Expect(string(out)).To(Equal(doc))
	})

	It("rejects documents that are not task lists", func() {
		_, _, err := CleanDocument([]byte(`{"data":{}}`))
		Expect(err).To(MatchError(ErrNotDocument))
	})
})

var _ = Describe("CleanCorpus", func() {
	It("rewrites only the files that changed", func() {
		root := GinkgoT().TempDir()
		nested := filepath.Join(root, "a", "b")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		stale := filepath.Join(nested, "labels.json")
		clean := filepath.Join(root, "clean.json")
		cleanDoc := `[{"annotations":[{"result":[{"value":{"start":1},"original_length":4}]}]}]`
		Expect(os.WriteFile(stale, []byte(staleDoc), 0o644)).To(Succeed())
		Expect(os.WriteFile(clean, []byte(cleanDoc), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not json"), 0o644)).To(Succeed())

		stats, err := CleanCorpus(root)
		Expect(err).ToNot(HaveOccurred())
		Expect(stats.Files).To(Equal(2))
		Expect(stats.Changed).To(Equal(1))
		Expect(stats.Dropped).To(Equal(1))

		data, err := os.ReadFile(stale)
		Expect(err).ToNot(HaveOccurred())
		Expect(gjson.GetBytes(data, "0.annotations.0.result.#").Int()).To(Equal(int64(1)))

		data, err = os.ReadFile(clean)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(cleanDoc))
	})
})

var _ = Describe("Scheduler", func() {
	It("deletes only files older than the maximum age", func() {
		dir := GinkgoT().TempDir()
		old := filepath.Join(dir, "old.wav")
		fresh := filepath.Join(dir, "fresh.wav")
		Expect(os.WriteFile(old, []byte("x"), 0o644)).To(Succeed())
		Expect(os.WriteFile(fresh, []byte("y"), 0o644)).To(Succeed())
		past := time.Now().Add(-5 * time.Hour)
		Expect(os.Chtimes(old, past, past)).To(Succeed())

		s := NewScheduler(dir, 60, 2)
		Expect(s.Sweep(time.Now())).To(Equal(1))
		Expect(old).ToNot(BeAnExistingFile())
		Expect(fresh).To(BeAnExistingFile())
	})
	It("removes stale empty work directories but keeps busy ones", func() {
		dir := GinkgoT().TempDir()
		empty := filepath.Join(dir, "run-a")
		busy := filepath.Join(dir, "run-b")
		Expect(os.Mkdir(empty, 0o755)).To(Succeed())
		Expect(os.Mkdir(busy, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(busy, "talk.wav"), []byte("x"), 0o644)).To(Succeed())
		past := time.Now().Add(-5 * time.Hour)
		Expect(os.Chtimes(empty, past, past)).To(Succeed())
		Expect(os.Chtimes(busy, past, past)).To(Succeed())

		s := NewScheduler(dir, 60, 2)
		Expect(s.Sweep(time.Now())).To(Equal(1))
		Expect(empty).ToNot(BeADirectory())
		Expect(busy).To(BeADirectory())
	})
})
