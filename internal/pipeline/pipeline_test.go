package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/codebuildervaibhav/speaker-transcript/internal/config"
	"github.com/codebuildervaibhav/speaker-transcript/internal/fusion"
	"github.com/codebuildervaibhav/speaker-transcript/internal/merge"
	. "github.com/codebuildervaibhav/speaker-transcript/internal/pipeline"
	"github.com/codebuildervaibhav/speaker-transcript/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeRecognizer struct {
	utterances []types.Utterance
	err        error
}

func (f fakeRecognizer) Transcribe(context.Context, string) ([]types.Utterance, error) {
	return f.utterances, f.err
}

type fakeDiarizer struct {
	intervals []types.DiarizationInterval
	err       error
}

func (f fakeDiarizer) Diarize(context.Context, string) ([]types.DiarizationInterval, error) {
	return f.intervals, f.err
}

var _ = Describe("Pipeline", func() {
	intervals := []types.DiarizationInterval{
		{Start: 0, End: 5, SpeakerID: "speaker_3"},
		{Start: 5, End: 12, SpeakerID: "speaker_0"},
	}
	utterances := []types.Utterance{
		{Start: 0, End: 2, Text: "Hello"},
		{Start: 2.5, End: 4.5, Text: "there."},
		{Start: 6, End: 8, Text: "«Hi»"},
		{Start: 20, End: 21, Text: "anyone?"},
	}

	newPipeline := func(r transcription.Recognizer, d transcription.Diarizer) *Pipeline {
		return &Pipeline{
			Recognizer: r,
			Diarizer:   d,
			Aligner:    transcription.PassthroughAligner{},
			Fuser:      fusion.New(fusion.ModeStrict),
			Merger:     merge.New(merge.DefaultGraceTime),
		}
	}

	It("fuses, renumbers and merges", func() {
		p := newPipeline(fakeRecognizer{utterances: utterances}, fakeDiarizer{intervals: intervals})
		t, err := p.Run(context.Background(), "meeting.mp3")
		Expect(err).ToNot(HaveOccurred())
		Expect(t.AudioPath).To(Equal("meeting.mp3"))
		Expect(t.Intervals).To(Equal(intervals))
		Expect(t.Length).To(Equal(21.0))
		Expect(t.Phrases).To(Equal([]types.Phrase{
			{Start: 0, End: 4.5, Text: "Hello there.", Speaker: "Speaker 1"},
			{Start: 6, End: 8, Text: "Hi", Speaker: "Speaker 2"},
			{Start: 20, End: 21, Text: "anyone?", Speaker: types.NoSpeaker},
		}))
	})

	It("fills gaps from the nearest speaker in nearest mode", func() {
		p := newPipeline(fakeRecognizer{utterances: utterances}, fakeDiarizer{intervals: intervals})
		p.Fuser = fusion.New(fusion.ModeNearest)
		t, err := p.Run(context.Background(), "meeting.mp3")
		Expect(err).ToNot(HaveOccurred())
		Expect(t.Phrases[len(t.Phrases)-1].Speaker).To(Equal("Speaker 2"))
	})

	It("wraps backend failures as external errors", func() {
		boom := errors.New("model crashed")
		p := newPipeline(fakeRecognizer{err: boom}, fakeDiarizer{intervals: intervals})
		_, err := p.Run(context.Background(), "meeting.mp3")
		Expect(errors.Is(err, transcription.ErrExternal)).To(BeTrue())
		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("rejects phrases with inverted timestamps", func() {
		bad := []types.Utterance{{Start: 3, End: 1, Text: "backwards"}}
		p := newPipeline(fakeRecognizer{utterances: bad}, fakeDiarizer{intervals: intervals})
		_, err := p.Run(context.Background(), "meeting.mp3")
		Expect(errors.Is(err, types.ErrTimestamp)).To(BeTrue())
	})

	It("rejects phrases starting at or after the recording length", func() {
		p := newPipeline(fakeRecognizer{utterances: []types.Utterance{
			{Start: 0, End: 4, Text: "inside"},
			{Start: 5, End: 5.2, Text: "past the end"},
		}}, fakeDiarizer{intervals: []types.DiarizationInterval{
			{Start: 0, End: 4, SpeakerID: "a"},
			{Start: 5, End: 5.2, SpeakerID: "b"},
		}})
		p.TempDir = GinkgoT().TempDir()
		p.Normalize = func(_ context.Context, in, dir string, rate int) (string, error) {
			sub := filepath.Join(dir, "job")
			if err := os.MkdirAll(sub, 0755); err != nil {
				return "", err
			}
			path := filepath.Join(sub, filepath.Base(in)+".wav")
			f, err := os.Create(path)
			if err != nil {
				return "", err
			}
			defer f.Close()
			enc := wav.NewEncoder(f, rate, 16, 1, 1)
			buf := &audio.IntBuffer{
				Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
				Data:           make([]int, 5*rate),
				SourceBitDepth: 16,
			}
			if err := enc.Write(buf); err != nil {
				return "", err
			}
			return path, enc.Close()
		}
		p.SampleRate = 16000

		_, err := p.Run(context.Background(), "meeting.mp3")
		Expect(errors.Is(err, types.ErrTimestamp)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("beyond recording length 5.000")))
	})

	It("removes the normalised copy after the run", func() {
		tmp := GinkgoT().TempDir()
		var normalized string
		p := newPipeline(fakeRecognizer{utterances: utterances}, fakeDiarizer{intervals: intervals})
		p.TempDir = tmp
		p.Normalize = func(_ context.Context, in, dir string, _ int) (string, error) {
			sub := filepath.Join(dir, "job")
			Expect(os.MkdirAll(sub, 0755)).To(Succeed())
			normalized = filepath.Join(sub, filepath.Base(in)+".wav")
			return normalized, os.WriteFile(normalized, []byte("x"), 0644)
		}
		_, err := p.Run(context.Background(), "meeting.mp3")
		Expect(err).ToNot(HaveOccurred())
		Expect(normalized).ToNot(BeEmpty())
		Expect(filepath.Dir(normalized)).ToNot(BeADirectory())
	})

	It("builds backends from configuration", func() {
		cfg := config.Default()
		cfg.Models.Diarizer.Options = map[string]string{"dir": GinkgoT().TempDir()}
		cfg.Pipeline.FusionMode = "nearest"
		p, err := FromConfig(cfg)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Fuser.Mode).To(Equal(fusion.ModeNearest))
		Expect(p.Merger.GraceTime).To(Equal(3.0))

		cfg.Models.Recognizer.Name = "kaldi"
		_, err = FromConfig(cfg)
		Expect(err).To(MatchError(ContainSubstring("unknown backend")))
	})
})
