package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/signadot/observe/observable"
)

func watch(cfg *WatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Watch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: watch reads stdin and takes no args", cli.ErrUsage)
	}
	var delay time.Duration
	if cfg.Delay != "" {
		delay, err = time.ParseDuration(cfg.Delay)
		if err != nil {
			return fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	w := &watcher{
		out:   cc.Out,
		delay: delay,
		color: useColor(cfg.Watch, cfg.Color, cc.Out),
		log:   cfg.log(os.Stderr),
	}
	_, err = w.run(ctx, cc.In)
	return err
}

type watcher struct {
	out   io.Writer
	delay time.Duration
	color bool
	log   *slog.Logger
}

type watchStats struct {
	Lines    int
	Changes  int
	Observed int
}

// run sets a value to each line of r while a subscriber prints the changes
// it observes. A slow subscriber skips to the latest line.
func (w *watcher) run(ctx context.Context, r io.Reader) (watchStats, error) {
	var st watchStats
	o := observable.New("")
	sub := o.Subscribe()
	defer sub.Close()

	type readResult struct {
		lines, changes int
		err            error
	}
	done := make(chan readResult, 1)
	go func() {
		defer o.Close()
		var res readResult
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			res.lines++
			if _, changed := observable.SetIfNotEqual[string](o, sc.Text()); changed {
				res.changes++
			}
		}
		res.err = sc.Err()
		done <- res
	}()

	dmp := diffpatch.New()
	prev := ""
	for {
		v, err := sub.Next(ctx)
		if errors.Is(err, observable.ErrClosed) {
			break
		}
		if err != nil {
			return st, err
		}
		st.Observed++
		diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(prev, v, false))
		fmt.Fprintln(w.out, w.render(diffs))
		prev = v
		if w.delay > 0 {
			select {
			case <-time.After(w.delay):
			case <-ctx.Done():
				return st, ctx.Err()
			}
		}
	}
	res := <-done
	st.Lines, st.Changes = res.lines, res.changes
	w.log.Info("watched", "lines", st.Lines, "changes", st.Changes, "observed", st.Observed)
	return st, res.err
}

func (w *watcher) render(diffs []diffpatch.Diff) string {
	if w.color {
		return diffpatch.New().DiffPrettyText(diffs)
	}
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffInsert:
			fmt.Fprintf(&b, "{+%s+}", d.Text)
		case diffpatch.DiffDelete:
			fmt.Fprintf(&b, "[-%s-]", d.Text)
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
