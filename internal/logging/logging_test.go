package logging_test

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	. "github.com/codebuildervaibhav/speaker-transcript/internal/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LogBuffer", func() {
	It("keeps only the most recent lines", func() {
		lb := NewLogBuffer(3)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(lb, "line %d\n", i)
		}
		Expect(lb.GetLogs()).To(Equal([]string{"line 2", "line 3", "line 4"}))
	})
})

var _ = Describe("Setup", func() {
	AfterEach(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	It("tees JSON lines into extra writers at the chosen level", func() {
		lb := NewLogBuffer(10)
		Expect(Setup("warn", "json", lb)).To(Succeed())
		log.Info().Msg("hidden")
		log.Warn().Str("file", "a.wav").Msg("shown")

		logs := lb.GetLogs()
		Expect(logs).To(HaveLen(1))
		Expect(logs[0]).To(ContainSubstring(`"message":"shown"`))
		Expect(logs[0]).To(ContainSubstring(`"file":"a.wav"`))
	})

	It("rejects unknown settings", func() {
		Expect(Setup("loud", "json")).ToNot(Succeed())
		Expect(Setup("info", "xml")).ToNot(Succeed())
	})
})
