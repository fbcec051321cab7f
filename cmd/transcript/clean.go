package main

import (
	"fmt"
	"io"
	"os"

	"github.com/codebuildervaibhav/speaker-transcript/internal/cleanup"
)

type CleanCMD struct {
	Root string `arg:"" type:"existingdir" help:"Directory of interchange documents, rewritten in place"`
}

func (c *CleanCMD) Run(ctx *Globals) error {
	return c.clean(os.Stdout)
}

func (c *CleanCMD) clean(w io.Writer) error {
	stats, err := cleanup.CleanCorpus(c.Root)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "files %d, rewritten %d, kept %d, dropped %d\n", stats.Files, stats.Changed, stats.Kept, stats.Dropped)
	return nil
}
