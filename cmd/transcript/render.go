package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/codebuildervaibhav/speaker-transcript/internal/interchange"
	"github.com/codebuildervaibhav/speaker-transcript/internal/output"
)

type RenderCMD struct {
	File string `arg:"" type:"existingfile" help:"Interchange document"`

	Compact bool `help:"Print compact JSON instead of Markdown" xor:"format"`
	Plain   bool `help:"Print timestamped lines instead of Markdown" xor:"format"`
}

func (r *RenderCMD) Run(ctx *Globals) error {
	return r.render(os.Stdout)
}

func (r *RenderCMD) render(w io.Writer) error {
	entries, err := interchange.DecodeFile(r.File)
	if err != nil {
		return err
	}

	audios := slices.Sorted(maps.Keys(entries))
	for i, audio := range audios {
		phrases := entries[audio].Phrases
		if len(audios) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "<!-- %s -->\n", audio)
		}

		switch {
		case r.Compact:
			data, err := interchange.MarshalCompact(phrases)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", data)
		case r.Plain:
			fmt.Fprint(w, output.Plain(phrases))
		default:
			fmt.Fprintln(w, output.Markdown(phrases))
		}
	}
	return nil
}
