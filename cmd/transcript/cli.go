package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/config"
	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/transcription"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

const version = "1.0.0"

// Globals carries the flags shared by every command.
type Globals struct {
	Config    string `env:"TRANSCRIPT_CONFIG" short:"c" default:"config/config.yaml" type:"path" help:"YAML configuration file"`
	LogLevel  string `env:"TRANSCRIPT_LOG_LEVEL" default:"info" enum:"error,warn,info,debug,trace" help:"Set the level of logs to output [${enum}]"`
	LogFormat string `env:"TRANSCRIPT_LOG_FORMAT" default:"default" enum:"default,text,json" help:"Set the format of logs to output [${enum}]"`
}

var CLI struct {
	Globals `embed:""`

	Transcribe TranscribeCMD    `cmd:"" help:"Transcribe recordings, writing results next to each one"`
	Clean      CleanCMD         `cmd:"" help:"Drop annotations that start beyond the end of their recording"`
	Evaluate   EvaluateCMD      `cmd:"" help:"Score the pipeline against an annotated corpus"`
	Render     RenderCMD        `cmd:"" help:"Print an interchange document as Markdown or compact JSON"`
	Serve      ServeCMD         `cmd:"" help:"Run the HTTP API"`
	Version    kong.VersionFlag `help:"Print the version and exit"`
}

// loadConfig reads the configuration, falling back to defaults when the
// file does not exist.
func (c *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", c.Config).Msg("config file not found, using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// errorKind names the failure class of a per-file error for the logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, transcription.ErrExternal):
		return "external"
	case errors.Is(err, types.ErrTimestamp):
		return "timestamp"
	case errors.Is(err, interchange.ErrStructural):
		return "structural"
	default:
		return "io"
	}
}
