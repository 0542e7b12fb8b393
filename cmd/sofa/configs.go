package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Addr    string `cli:"name=addr desc='sofa JSON-RPC address' default=127.0.0.1:5985"`
	Color   bool   `cli:"name=color desc='color output'"`
	NoColor bool   `cli:"name=no-color desc='never color output'"`

	Main *cli.Command
}

// useColor reports whether output to cc.Out should be colored: as asked
// by -color or -no-color, else when it is a terminal.
func (cfg *MainConfig) useColor(cc *cli.Context) bool {
	switch {
	case cfg.NoColor:
		return false
	case cfg.Color:
		return true
	}
	f, ok := cc.Out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type ServeConfig struct {
	*MainConfig
	Serve  *cli.Command
	Config string `cli:"name=config desc='YAML configuration file'"`
	HTTP   string `cli:"name=http desc='HTTP listen address, overrides the configuration'"`
	RPC    string `cli:"name=rpc desc='JSON-RPC listen address, overrides the configuration'"`
	NoGops bool   `cli:"name=no-gops desc='do not start the gops diagnostics agent'"`
}

type DBConfig struct {
	*MainConfig
	DB                   *cli.Command
	Ls, Create, Info, Rm *cli.Command
}

type DocConfig struct {
	*MainConfig
	Doc                *cli.Command
	Get, Put, Post, Rm *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Diff *cli.Command
	Meta bool `cli:"name=meta desc='include _id and _rev in the comparison'"`
}

type UUIDsConfig struct {
	*MainConfig
	UUIDs *cli.Command
	N     int `cli:"name=n desc='number of ids' default=1"`
}
