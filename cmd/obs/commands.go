package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "obs").
		WithSynopsis("obs [opts] command [opts]").
		WithDescription("obs drives observable values and collections from the command line.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return obsMain(cfg, cc, args)
		}).
		WithSubs(
			RunCommand(cfg),
			WatchCommand(cfg),
			SoakCommand(cfg))
}

func RunCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &RunConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Run, "run").
		WithAliases("r").
		WithSynopsis("run [-json | -patch] [-color] script.yaml").
		WithDescription(runDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return run(cfg, cc, args)
		})
}

const runDescription = `run feeds the operations of a script into a collection and prints the
diffs coming out of the script's pipeline.

A script looks like

  capacity: 16
  initial: [3, 1, 2]
  pipeline:
  - filter: "value % 2 == 1"
  - map: "value * 10"
  - sort: "a < b"
  - sortkey: "value"
  - head: 3
  - tail: 2
  - skip: 1
  ops:
  - {op: push_back, value: 5}
  - {op: insert, index: 0, value: 7}
  - {op: tx, ops: [{op: pop_front}, {op: push_front, value: 1}]}
  - {op: abort, ops: [{op: clear}]}

Pipeline stages apply in order. filter and map take expressions of value,
a map yielding nil drops the element. sort takes a boolean expression of a
and b that is true when a sorts before b. sortkey takes a numeric
expression of value.

Each op is committed on its own. A tx op commits its ops as one batch and
an abort op stages its ops and rolls them back.

Batches print as YAML, as JSON with -json, or as RFC 6902 JSON Patch
operations with -patch.`

func WatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &WatchConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Watch, "watch").
		WithAliases("w").
		WithSynopsis("watch [-color] [-delay d] < lines").
		WithDescription("watch sets a value to each line read from stdin and prints the changes a subscriber observes.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return watch(cfg, cc, args)
		})
}

func SoakCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SoakConfig{MainConfig: mainCfg, Subscribers: 8, Writes: 100000}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Soak, "soak").
		WithSynopsis("soak [-subscribers n] [-writes n] [-vector] [-gops]").
		WithDescription("soak writes concurrently observed values and checks what subscribers see.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return soak(cfg, cc, args)
		})
}
