package main

import (
	"context"

	"github.com/scott-cotton/cli"
	"github.com/signadot/sofa/system/sofad/client"
)

func docGet(cfg *DocConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Get, cc, args, 2)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		d, err := c.GetDocument(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cc.Out, d)
	})
}

func docPut(cfg *DocConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Put, cc, args, 3)
	if err != nil {
		return err
	}
	d, err := readDoc(args[2])
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		res, err := c.PutDocument(ctx, args[0], args[1], d)
		if err != nil {
			return err
		}
		return printJSON(cc.Out, res)
	})
}

func docPost(cfg *DocConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Post, cc, args, 2)
	if err != nil {
		return err
	}
	d, err := readDoc(args[1])
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		res, err := c.PostDocument(ctx, args[0], d)
		if err != nil {
			return err
		}
		return printJSON(cc.Out, res)
	})
}

func docRemove(cfg *DocConfig, cc *cli.Context, args []string) error {
	args, err := positional(cfg.Rm, cc, args, 3)
	if err != nil {
		return err
	}
	return cfg.withClient(func(ctx context.Context, c *client.Client) error {
		res, err := c.DeleteDocument(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(cc.Out, res)
	})
}
