package storage_test

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MetadataDB", func() {
	var db *MetadataDB

	BeforeEach(func() {
		var err error
		db, err = NewMetadataDB(filepath.Join(GinkgoT().TempDir(), "meta.db"))
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(db.Close)
	})

	It("stores and lists transcripts newest first", func() {
		base := time.Date(2025, 1, 23, 14, 30, 0, 0, time.UTC)
		Expect(db.SaveTranscript(TranscriptRecord{
			JobID: "a", RequestName: "first", SourceType: "upload", LocalPath: "/x/a.json",
			CreatedAt: base, Duration: 10, SpeakerCount: 2, PhraseCount: 5,
		})).To(Succeed())
		Expect(db.SaveTranscript(TranscriptRecord{
			JobID: "b", RequestName: "second", SourceType: "gdrive", LocalPath: "/x/b.json",
			CreatedAt: base.Add(time.Hour),
		})).To(Succeed())

		got, err := db.GetTranscript("a")
		Expect(err).ToNot(HaveOccurred())
		Expect(got.RequestName).To(Equal("first"))
		Expect(got.SpeakerCount).To(Equal(2))
		Expect(got.CreatedAt.Equal(base)).To(BeTrue())

		list, err := db.ListTranscripts(10)
		Expect(err).ToNot(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list[0].JobID).To(Equal("b"))
	})

	It("rejects duplicate job ids", func() {
		r := TranscriptRecord{JobID: "dup", RequestName: "x", SourceType: "upload", LocalPath: "p"}
		Expect(db.SaveTranscript(r)).To(Succeed())
		Expect(db.SaveTranscript(r)).ToNot(Succeed())
	})

	It("reports unknown jobs as not found", func() {
		_, err := db.GetTranscript("missing")
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})

	It("records evaluation runs", func() {
		Expect(db.SaveEvaluation(EvaluationRecord{RunID: "r1", Root: "corpus", DER: 0.15, WER: 0.2, Recordings: 2})).To(Succeed())
		runs, err := db.ListEvaluations(5)
		Expect(err).ToNot(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].DER).To(Equal(0.15))
		Expect(runs[0].Recordings).To(Equal(2))
	})
})
