package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codebuildervaibhav/speaker-transcript/internal/evaluation"
	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

func writeDocument(path string, phrases []types.Phrase, length float64) {
	data, err := interchange.Marshal(interchange.Encode(phrases, "talk.wav", length))
	Expect(err).ToNot(HaveOccurred())
	Expect(os.WriteFile(path, data, 0644)).To(Succeed())
}

var _ = Describe("transcript commands", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("errorKind", func() {
		It("classifies wrapped failures", func() {
			Expect(errorKind(fmt.Errorf("a.wav: %w", transcription.ErrExternal))).To(Equal("external"))
			Expect(errorKind(fmt.Errorf("a.wav: %w", types.ErrTimestamp))).To(Equal("timestamp"))
			Expect(errorKind(fmt.Errorf("a.json: %w", interchange.ErrStructural))).To(Equal("structural"))
			Expect(errorKind(fmt.Errorf("a.wav: %w", context.Canceled))).To(Equal("canceled"))
			Expect(errorKind(errors.New("permission denied"))).To(Equal("io"))
		})
	})

	Describe("loadConfig", func() {
		It("falls back to defaults when the file is missing", func() {
			ctx := &Globals{Config: filepath.Join(dir, "missing.yaml")}
			cfg, err := ctx.loadConfig()
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Pipeline.FusionMode).To(Equal("strict"))
		})

		It("reports invalid files", func() {
			path := filepath.Join(dir, "config.yaml")
			Expect(os.WriteFile(path, []byte("workers:\n  count: 0\n"), 0644)).To(Succeed())
			_, err := (&Globals{Config: path}).loadConfig()
			Expect(err).To(MatchError(ContainSubstring("workers.count")))
		})
	})

	Describe("render", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(dir, "talk.wav.json")
			writeDocument(path, []types.Phrase{
				{Start: 0, End: 2, Text: "hello there", Speaker: "A"},
				{Start: 2.5, End: 4, Text: "hi", Speaker: "B"},
			}, 10)
		})

		It("prints Markdown by default", func() {
			var out bytes.Buffer
			Expect((&RenderCMD{File: path}).render(&out)).To(Succeed())
			Expect(out.String()).To(Equal("# Speaker 1\nhello there\n\n# Speaker 2\nhi\n"))
		})

		It("prints compact JSON", func() {
			var out bytes.Buffer
			Expect((&RenderCMD{File: path, Compact: true}).render(&out)).To(Succeed())
			phrases, err := interchange.UnmarshalCompact(bytes.TrimSpace(out.Bytes()))
			Expect(err).ToNot(HaveOccurred())
			Expect(phrases).To(HaveLen(2))
			Expect(phrases[1].Speaker).To(Equal("Speaker 2"))
		})

		It("prints timestamped lines", func() {
			var out bytes.Buffer
			Expect((&RenderCMD{File: path, Plain: true}).render(&out)).To(Succeed())
			Expect(out.String()).To(Equal("[00:00-00:02] Speaker 1: hello there\n[00:02-00:04] Speaker 2: hi\n"))
		})

		It("fails on structural errors", func() {
			Expect(os.WriteFile(path, []byte(`[{"data":{"audio":"a.wav"},"predictions":[{"result":[
				{"id":"1","from_name":"labels","to_name":"audio","type":"labels","value":{"start":0,"end":1,"labels":["A"]}}
			]}]}]`), 0644)).To(Succeed())
			err := (&RenderCMD{File: path}).render(&bytes.Buffer{})
			Expect(errors.Is(err, interchange.ErrStructural)).To(BeTrue())
		})
	})

	Describe("clean", func() {
		It("prints what was pruned", func() {
			writeDocument(filepath.Join(dir, "talk.wav.json"), []types.Phrase{
				{Start: 0, End: 2, Text: "kept", Speaker: "A"},
			}, 10)
			stale := `[{"data":{"audio":"b.wav"},"annotations":[{"result":[
				{"id":"1","from_name":"labels","to_name":"audio","type":"labels","original_length":5,"value":{"start":6,"end":7,"labels":["A"]}}
			]}]}]`
			Expect(os.WriteFile(filepath.Join(dir, "b.wav.json"), []byte(stale), 0644)).To(Succeed())

			var out bytes.Buffer
			Expect((&CleanCMD{Root: dir}).clean(&out)).To(Succeed())
			Expect(out.String()).To(Equal("files 2, rewritten 1, kept 2, dropped 1\n"))
		})
	})

	Describe("evaluate output", func() {
		report := evaluation.Report{DER: 0.25, JER: 0.5, DERNoMiss: 0.125, WER: 0.1, TotalLength: 30}

		It("prints one metric per line", func() {
			var out bytes.Buffer
			Expect((&EvaluateCMD{}).print(&out, report)).To(Succeed())
			Expect(out.String()).To(Equal("JER 0.5\nDER 0.25\nDER no miss 0.125\nWER 0.1\n"))
		})

		It("prints JSON on request", func() {
			var out bytes.Buffer
			Expect((&EvaluateCMD{JSON: true}).print(&out, report)).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"der_no_miss": 0.125`))
		})
	})
})
