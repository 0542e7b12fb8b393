package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	"github.com/segmentio/encoding/json"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/api"
	"github.com/signadot/sofa/system/sofad/client"
)

var errConflict = &api.Error{Code: api.ErrCodeConflict}

func sofaMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Color && cfg.NoColor {
		return fmt.Errorf("%w: must specify at most one of -color -no-color", cli.ErrUsage)
	}
	color.NoColor = !cfg.useColor(cc)
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		fmt.Fprintln(os.Stderr, color.RedString("%s", apiErr.Code)+": "+apiErr.Message)
		if errors.Is(err, errConflict) {
			fmt.Fprintln(os.Stderr, "the document changed; fetch its current _rev with 'sofa doc get'")
		}
		os.Exit(1)
	}
	return err
}

// positional parses the options of cmd and requires exactly n arguments.
func positional(cmd *cli.Command, cc *cli.Context, args []string, n int) ([]string, error) {
	args, err := cmd.Parse(cc, args)
	if err != nil {
		return nil, err
	}
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", cli.ErrUsage, n, len(args))
	}
	return args, nil
}

// withClient dials the configured server and runs f.
func (cfg *MainConfig) withClient(f func(ctx context.Context, c *client.Client) error) error {
	ctx := context.Background()
	c, err := client.Dial(ctx, cfg.Addr)
	if err != nil {
		return err
	}
	defer c.Close()
	return f(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// readDoc reads a JSON document from file, or from stdin when file is "-".
func readDoc(file string) (doc.Document, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return doc.Document{}, err
	}
	d, err := doc.Parse(data)
	if err != nil {
		return doc.Document{}, fmt.Errorf("%s: %w", file, err)
	}
	return d, nil
}
