package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	"github.com/segmentio/encoding/json"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/client"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Diff, cc, args, 3)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		from, err := c.GetDocument(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		to, err := c.GetDocument(ctx, args[0], args[2])
		if err != nil {
			return err
		}
		same, err := writeDiff(cc.Out, from, to, cfg.Meta)
		if err != nil {
			return err
		}
		if !same {
			return cli.ExitCodeErr(1)
		}
		return nil
	})
}

// writeDiff writes a line diff of the indented renderings of from and to,
// reporting whether they render identically.
func writeDiff(w io.Writer, from, to doc.Document, meta bool) (bool, error) {
	if !meta {
		from = from.Without("_id").Without("_rev")
		to = to.Without("_id").Without("_rev")
	}
	a, err := json.MarshalIndent(from, "", "  ")
	if err != nil {
		return false, err
	}
	b, err := json.MarshalIndent(to, "", "  ")
	if err != nil {
		return false, err
	}
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(string(a)+"\n", string(b)+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	same := true
	for _, d := range diffs {
		prefix, paint := "  ", fmt.Sprint
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, paint, same = "+ ", color.New(color.FgGreen).Sprint, false
		case diffmatchpatch.DiffDelete:
			prefix, paint, same = "- ", color.New(color.FgRed).Sprint, false
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if _, err := io.WriteString(w, paint(prefix+line)); err != nil {
				return false, err
			}
		}
	}
	return same, nil
}
