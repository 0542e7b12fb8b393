package main

import (
	"context"
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/sofa/system/sofad/client"
)

func uuids(cfg *UUIDsConfig, cc *cli.Context, args []string) error {
	if _, err := positional(cfg.UUIDs, cc, args, 0); err != nil {
		return err
	}
	if cfg.N < 1 {
		return fmt.Errorf("%w: -n must be positive", cli.ErrUsage)
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		ids, err := c.UUIDs(ctx, cfg.N)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cc.Out, id)
		}
		return nil
	})
}
