package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/speaker-transcript/internal/cleanup"
	"github.com/codebuildervaibhav/speaker-transcript/internal/evaluation"
	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/pipeline"
	"github.com/codebuildervaibhav/speaker-transcript/internal/storage"
	"github.com/codebuildervaibhav/speaker-transcript/internal/types"
)

type EvaluateCMD struct {
	Root string `arg:"" type:"existingdir" help:"Annotated corpus: interchange documents next to their recordings"`

	Workers int    `short:"w" help:"Recordings processed in parallel (defaults to workers.count)"`
	Clean   bool   `help:"Prune stale annotations before scoring"`
	JSON    bool   `name:"json" help:"Print the full per-recording report as JSON"`
	Save    bool   `help:"Store the summary in the metadata database"`
	Fusion  string `help:"Override pipeline.fusion_mode (strict or nearest)"`
}

func (e *EvaluateCMD) Run(ctx *Globals) error {
	cfg, err := ctx.loadConfig()
	if err != nil {
		return err
	}
	if e.Fusion != "" {
		cfg.Pipeline.FusionMode = e.Fusion
	}
	workers := cfg.Workers.Count
	if e.Workers > 0 {
		workers = e.Workers
	}

	if e.Clean {
		stats, err := cleanup.CleanCorpus(e.Root)
		if err != nil {
			return fmt.Errorf("cleaning corpus: %w", err)
		}
		log.Info().Int("files", stats.Files).Int("dropped", stats.Dropped).Msg("corpus cleaned")
	}

	reference, err := interchange.Corpus(e.Root)
	if err != nil {
		return err
	}
	if len(reference) == 0 {
		return fmt.Errorf("%s: %w", e.Root, evaluation.ErrEmptyCorpus)
	}

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		return err
	}
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	runCtx, stop := signalContext()
	defer stop()

	paths := slices.Sorted(maps.Keys(reference))
	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("evaluating"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	produced := make(map[string]types.Transcript, len(paths))

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			t, err := p.Run(gctx, path)
			if err != nil {
				log.Error().Err(err).Str("file", path).Str("kind", errorKind(err)).Msg("transcription failed")
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			produced[path] = t
			mu.Unlock()
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report, err := evaluation.New().Evaluate(reference, produced)
	if err != nil {
		return err
	}
	if err := e.print(os.Stdout, report); err != nil {
		return err
	}

	if e.Save {
		return e.save(cfg.Storage.Database, report)
	}
	return nil
}

func (e *EvaluateCMD) print(w io.Writer, report evaluation.Report) error {
	if e.JSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	fmt.Fprintln(w, "JER", report.JER)
	fmt.Fprintln(w, "DER", report.DER)
	fmt.Fprintln(w, "DER no miss", report.DERNoMiss)
	fmt.Fprintln(w, "WER", report.WER)
	return nil
}

func (e *EvaluateCMD) save(dbPath string, report evaluation.Report) error {
	db, err := storage.NewMetadataDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID := uuid.NewString()
	err = db.SaveEvaluation(storage.EvaluationRecord{
		RunID:       runID,
		Root:        e.Root,
		DER:         report.DER,
		JER:         report.JER,
		DERNoMiss:   report.DERNoMiss,
		WER:         report.WER,
		TotalLength: report.TotalLength,
		Recordings:  len(report.Recordings),
	})
	if err != nil {
		return err
	}
	log.Info().Str("run", runID).Str("database", dbPath).Msg("evaluation saved")
	return nil
}
