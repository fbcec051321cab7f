package cleanup

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Containers swept in every task. "prediction" is the legacy shape holding
// records directly instead of result blocks.
var Containers = []string{"annotations", "predictions", "prediction"}

// ErrNotDocument reports JSON that is not a list of tasks
var ErrNotDocument = errors.New("not an interchange document")

// Stats counts what a cleaning pass did
type Stats struct {
	Files   int
	Changed int
	Kept    int
	Dropped int
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Changed += o.Changed
	s.Kept += o.Kept
	s.Dropped += o.Dropped
}

// Stale reports whether a record starts at or after the recording length it
// was authored against. Records without a positive original_length are
// never stale.
func Stale(record gjson.Result) bool {
	length := record.Get("original_length")
	if !length.Exists() || length.Float() <= 0 {
		return false
	}
	return record.Get("value.start").Float() >= length.Float()
}

// CleanDocument drops stale records from every container of every task and
// leaves all other bytes untouched.
func CleanDocument(raw []byte) ([]byte, Stats, error) {
	var stats Stats
	if !gjson.ValidBytes(raw) {
		return nil, stats, fmt.Errorf("%w: invalid JSON", ErrNotDocument)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, stats, fmt.Errorf("%w: top level is not a list", ErrNotDocument)
	}

	out := raw
	var err error
	for i, task := range root.Array() {
		for _, name := range Containers {
			container := task.Get(name)
			if !container.IsArray() {
				continue
			}
			if holdsBlocks(container) {
				for j, block := range container.Array() {
					result := block.Get("result")
					if !result.IsArray() {
						continue
					}
					out, err = prune(out, fmt.Sprintf("%d.%s.%d.result", i, name, j), result, &stats)
					if err != nil {
						return nil, stats, err
					}
				}
				continue
			}
			out, err = prune(out, fmt.Sprintf("%d.%s", i, name), container, &stats)
			if err != nil {
				return nil, stats, err
			}
		}
	}
	return out, stats, nil
}

func holdsBlocks(container gjson.Result) bool {
	for _, item := range container.Array() {
		if item.Get("result").Exists() {
			return true
		}
	}
	return false
}

func prune(doc []byte, path string, records gjson.Result, stats *Stats) ([]byte, error) {
	var kept [][]byte
	dropped := 0
	for _, rec := range records.Array() {
		if Stale(rec) {
			dropped++
			continue
		}
		kept = append(kept, []byte(rec.Raw))
	}
	stats.Kept += len(kept)
	stats.Dropped += dropped
	if dropped == 0 {
		return doc, nil
	}

	raw := append([]byte{'['}, bytes.Join(kept, []byte{','})...)
	raw = append(raw, ']')
	out, err := sjson.SetRawBytes(doc, path, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	return out, nil
}

// CleanFile prunes one document in place. The file is only rewritten when
// something was dropped.
func CleanFile(path string) (Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, err
	}
	cleaned, stats, err := CleanDocument(raw)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}
	stats.Files = 1
	if stats.Dropped == 0 {
		return stats, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return stats, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, cleaned, info.Mode().Perm()); err != nil {
		return stats, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return stats, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	stats.Changed = 1
	return stats, nil
}

// CleanCorpus prunes every JSON document under root.
func CleanCorpus(root string) (Stats, error) {
	var total Stats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		stats, err := CleanFile(path)
		if err != nil {
			return err
		}
		total.add(stats)
		if stats.Dropped > 0 {
			log.Info().Str("file", path).Int("dropped", stats.Dropped).Int("kept", stats.Kept).Msg("pruned stale annotations")
		} else {
			log.Debug().Str("file", path).Msg("nothing to prune")
		}
		return nil
	})
	return total, err
}
