package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"
	"github.com/signadot/sofa/system/sofad/server"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}

	conf := server.DefaultConfig()
	if cfg.Config != "" {
		conf, err = server.LoadConfig(cfg.Config)
		if err != nil {
			return err
		}
	}
	if cfg.HTTP != "" {
		conf.HTTP.Addr = cfg.HTTP
	}
	if cfg.RPC != "" {
		conf.RPC.Addr = cfg.RPC
	}

	if !cfg.NoGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
		} else {
			defer agent.Close()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(&server.Spec{Config: conf, Log: theLog})
	if err != nil {
		return err
	}
	theLog.Info("serving", "http", conf.HTTP.Addr, "rpc", conf.RPC.Addr, "validators", len(conf.Validators))
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	theLog.Info("stopped")
	return nil
}
