package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{Addr: "127.0.0.1:5985"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "sofa").
		WithSynopsis("sofa [-addr host:port] [-color|-no-color] command [opts]").
		WithDescription("sofa is an in-memory document store with a CouchDB style API.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return sofaMain(cfg, cc, args)
		}).
		WithSubs(
			ServeCommand(cfg),
			DBCommand(cfg),
			DocCommand(cfg),
			DiffCommand(cfg),
			UUIDsCommand(cfg))
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-config file] [-http addr] [-rpc addr]").
		WithDescription("run the sofa HTTP and JSON-RPC services").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}

func DBCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DBConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.DB, "db").
		WithSynopsis("db <subcommand>").
		WithDescription("manage databases").
		WithSubs(
			cli.NewCommandAt(&cfg.Ls, "ls").
				WithAliases("list").
				WithSynopsis("ls").
				WithDescription("list databases").
				WithRun(func(cc *cli.Context, args []string) error {
					return dbList(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Create, "create").
				WithSynopsis("create NAME").
				WithDescription("create a database").
				WithRun(func(cc *cli.Context, args []string) error {
					return dbCreate(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Info, "info").
				WithSynopsis("info NAME").
				WithDescription("describe a database").
				WithRun(func(cc *cli.Context, args []string) error {
					return dbInfo(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Rm, "rm").
				WithSynopsis("rm NAME").
				WithDescription("delete a database and all its documents").
				WithRun(func(cc *cli.Context, args []string) error {
					return dbRemove(cfg, cc, args)
				}))
}

func DocCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DocConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Doc, "doc").
		WithSynopsis("doc <subcommand>").
		WithDescription("read and write documents").
		WithSubs(
			cli.NewCommandAt(&cfg.Get, "get").
				WithSynopsis("get DB ID").
				WithDescription("print a document").
				WithRun(func(cc *cli.Context, args []string) error {
					return docGet(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Put, "put").
				WithSynopsis("put DB ID FILE|-").
				WithDescription("create or update a document from a JSON file").
				WithRun(func(cc *cli.Context, args []string) error {
					return docPut(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Post, "post").
				WithSynopsis("post DB FILE|-").
				WithDescription("store a document under its _id or a generated one").
				WithRun(func(cc *cli.Context, args []string) error {
					return docPost(cfg, cc, args)
				}),
			cli.NewCommandAt(&cfg.Rm, "rm").
				WithSynopsis("rm DB ID REV").
				WithDescription("delete a document").
				WithRun(func(cc *cli.Context, args []string) error {
					return docRemove(cfg, cc, args)
				}))
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithSynopsis("diff [-meta] DB ID1 ID2").
		WithDescription("show a line diff of two documents").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func UUIDsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &UUIDsConfig{MainConfig: mainCfg, N: 1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.UUIDs, "uuids").
		WithSynopsis("uuids [-n count]").
		WithDescription("print fresh ids").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return uuids(cfg, cc, args)
		})
}
