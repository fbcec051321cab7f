package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/codebuildervaibhav/speaker-transcript/internal/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {
	write := func(body string) string {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte(body), 0644)).To(Succeed())
		return path
	}

	It("keeps defaults for missing keys", func() {
		c, err := config.Load(write("server:\n  port: 9000\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Server.Port).To(Equal(9000))
		Expect(c.Server.Host).To(Equal("0.0.0.0"))
		Expect(c.Pipeline.GraceTime).To(Equal(3.0))
		Expect(c.Models.Recognizer.Name).To(Equal("whisper"))
	})

	It("reads backend options", func() {
		c, err := config.Load(write(`
models:
  diarizer:
    name: command
    options:
      command: python diarize.py {manifest} {out}
pipeline:
  fusion_mode: nearest
  grace_time: 1.5
`))
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Models.Diarizer.Name).To(Equal("command"))
		Expect(c.Models.Diarizer.Options).To(HaveKeyWithValue("command", "python diarize.py {manifest} {out}"))
		Expect(c.Pipeline.FusionMode).To(Equal("nearest"))
		Expect(c.Pipeline.GraceTime).To(Equal(1.5))
	})

	It("rejects invalid values", func() {
		_, err := config.Load(write("workers:\n  count: 0\n"))
		Expect(err).To(MatchError(ContainSubstring("workers.count")))
		_, err = config.Load(write("pipeline:\n  grace_time: -1\n"))
		Expect(err).To(HaveOccurred())
	})

	It("reports a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "absent.yaml"))
		Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
	})
})
