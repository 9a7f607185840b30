package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Verbose bool `cli:"name=v aliases=verbose desc='log at debug level'"`

	Main *cli.Command
}

func (cfg *MainConfig) log(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return newLog(w, level)
}

type RunConfig struct {
	*MainConfig
	JSON  bool `cli:"name=json desc='print batches as json'"`
	Patch bool `cli:"name=patch desc='print batches as json patch operations'"`
	Color bool `cli:"name=color desc='print batches in color'"`

	Run *cli.Command
}

type WatchConfig struct {
	*MainConfig
	Color bool   `cli:"name=color desc='print changes in color'"`
	Delay string `cli:"name=delay desc='pause between observed values, as a duration'"`

	Watch *cli.Command
}

type SoakConfig struct {
	*MainConfig
	Subscribers int  `cli:"name=subscribers desc='number of subscribers'"`
	Writes      int  `cli:"name=writes desc='number of writes'"`
	Vector      bool `cli:"name=vector desc='soak a collection instead of a value'"`
	Gops        bool `cli:"name=gops desc='start the gops diagnostics agent'"`

	Soak *cli.Command
}

// useColor reports whether to color output to w. An explicit -color
// option wins, otherwise color is used on terminals.
func useColor(cmd *cli.Command, color bool, w io.Writer) bool {
	if color {
		return true
	}
	for _, opt := range cmd.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
