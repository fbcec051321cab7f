package main

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/speaker-transcript/internal/logging"
)

func main() {
	// info until the flags are parsed
	_ = logging.Setup("info", "text")

	envFiles := []string{".env", "transcript.env"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(homeDir, ".config/transcript.env"))
	}
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			log.Debug().Str("file", envFile).Msg("loading environment variables")
			if err := godotenv.Load(envFile); err != nil {
				log.Error().Err(err).Str("file", envFile).Msg("failed to load env file")
			}
		}
	}

	ctx := kong.Parse(&CLI,
		kong.Name("transcript"),
		kong.Description(`  Speaker-attributed transcripts of audio recordings.

Runs a speech recognizer and a speaker diarizer over each recording, attributes
every utterance to a speaker and writes the result as an annotation-tool
document and Markdown. Annotated corpora can be cleaned and scored with DER,
JER and WER.`),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	if err := logging.Setup(CLI.LogLevel, CLI.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("invalid logging flags")
	}

	if err := ctx.Run(&CLI.Globals); err != nil {
		log.Fatal().Err(err).Msg("error running the command")
	}
}
