package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	"github.com/signadot/sofa/system/sofad/client"
)

func dbList(cfg *DBConfig, cc *cli.Context, args []string) error {
	if _, err := positional(cfg.Ls, cc, args, 0); err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		names, err := c.ListDatabases(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cc.Out, name)
		}
		return nil
	})
}

func dbCreate(cfg *DBConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Create, cc, args, 1)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		if err := c.CreateDatabase(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cc.Out, "%s %s\n", color.GreenString("created"), args[0])
		return nil
	})
}

func dbInfo(cfg *DBConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Info, cc, args, 1)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		info, err := c.DescribeDatabase(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cc.Out, info)
	})
}

func dbRemove(cfg *DBConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Rm, cc, args, 1)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		if err := c.DeleteDatabase(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cc.Out, "%s %s\n", color.RedString("deleted"), args[0])
		return nil
	})
}
