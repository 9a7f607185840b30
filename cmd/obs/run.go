package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"

	"github.com/signadot/observe/jsondiff"
	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

func run(cfg *RunConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Run.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one script file, got %d args", cli.ErrUsage, len(args))
	}
	if cfg.JSON && cfg.Patch {
		return fmt.Errorf("%w: must specify at most one of -json -patch", cli.ErrUsage)
	}
	script, err := LoadScript(args[0])
	if err != nil {
		return err
	}
	p := &printer{w: cc.Out, format: formatYAML}
	switch {
	case cfg.JSON:
		p.format = formatJSON
	case cfg.Patch:
		p.format = formatPatch
	case useColor(cfg.Run, cfg.Color, cc.Out):
		p.colors = newColors()
	}
	_, err = runScript(context.Background(), script, cfg.log(os.Stderr), p)
	return err
}

// errRoundDone ends the reading of derived diffs for one op.
var errRoundDone = errors.New("round done")

// gate lets one upstream batch through per round, so the diffs derived
// from each op can be read without blocking.
type gate[T any] struct {
	up    vector.Stream[T]
	ready bool
}

func (g *gate[T]) NextBatch(ctx context.Context) ([]vector.Diff[T], error) {
	if !g.ready {
		return nil, errRoundDone
	}
	g.ready = false
	return g.up.NextBatch(ctx)
}

// runScript feeds the script's ops through its pipeline, printing every
// derived batch and then the derived values, which it returns.
func runScript(ctx context.Context, s *Script, log *slog.Logger, p *printer) (persist.Vector[any], error) {
	o := vector.NewFrom(persist.FromSlice(s.Initial), vector.Capacity(s.Capacity), vector.Logger(log))
	defer o.Close()
	values, sub := o.Subscribe()
	defer sub.Close()
	g := &gate[any]{up: sub}
	derived, down, err := s.pipeline(values, g)
	if err != nil {
		return derived, err
	}
	p.start(derived)
	for i := range s.Ops {
		op := &s.Ops[i]
		published, err := op.commit(o, log)
		if err != nil {
			return derived, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
		if !published {
			continue
		}
		g.ready = true
		for {
			batch, err := down.NextBatch(ctx)
			if errors.Is(err, errRoundDone) {
				break
			}
			if err != nil {
				return derived, err
			}
			derived = vector.ApplyAll(batch, derived)
			if err := p.batch(i, op, batch); err != nil {
				return derived, err
			}
		}
	}
	return derived, p.values(derived)
}

// commit runs op in its own transaction and reports whether anything was
// published.
func (op *Op) commit(o *vector.Observable[any], log *slog.Logger) (bool, error) {
	tx := o.Transaction()
	defer tx.Rollback()
	ops := []Op{*op}
	if op.Op == opTx || op.Op == opAbort {
		ops = op.Ops
	}
	for i := range ops {
		if err := ops[i].apply(tx); err != nil {
			return false, err
		}
	}
	if op.Op == opAbort {
		log.Debug("rolled back", "staged", len(tx.Staged()))
		return false, nil
	}
	published := len(tx.Staged()) > 0
	tx.Commit()
	log.Debug("committed", "op", op.Op, "diffs", len(tx.Staged()), "len", o.Len())
	return published, nil
}

const (
	formatYAML  = "yaml"
	formatJSON  = "json"
	formatPatch = "patch"
)

type printer struct {
	w      io.Writer
	format string
	colors colors
	enc    *jsondiff.Encoder[any]
}

func (p *printer) start(values persist.Vector[any]) {
	p.enc = jsondiff.NewEncoder[any]("", values.Len())
}

func (p *printer) batch(i int, op *Op, batch []vector.Diff[any]) error {
	switch p.format {
	case formatJSON:
		d, err := json.Marshal(batch)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", d)
		return err
	case formatPatch:
		ops, err := p.enc.Encode(batch...)
		if err != nil {
			return err
		}
		d, err := json.Marshal(ops)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", d)
		return err
	}
	fmt.Fprintf(p.w, "--- # %d %s\n", i, op.Op)
	if p.colors != nil {
		for _, d := range batch {
			fmt.Fprintf(p.w, "- %s\n", p.colors.diff(d))
		}
		return nil
	}
	d, err := yaml.Marshal(batch)
	if err != nil {
		return err
	}
	_, err = p.w.Write(d)
	return err
}

func (p *printer) values(values persist.Vector[any]) error {
	if p.format != formatYAML {
		d, err := json.Marshal(values)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", d)
		return err
	}
	d, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.w, "--- # values\n%s", d)
	return err
}
