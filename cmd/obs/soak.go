package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/signadot/observe/observable"
	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

func soak(cfg *SoakConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Soak.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: soak takes no args", cli.ErrUsage)
	}
	if cfg.Subscribers < 1 || cfg.Writes < 1 {
		return fmt.Errorf("%w: -subscribers and -writes must be positive", cli.ErrUsage)
	}
	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
		} else {
			defer agent.Close()
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	log := cfg.log(os.Stderr)
	var reports []soakReport
	if cfg.Vector {
		reports, err = soakVector(ctx, log, cfg.Subscribers, cfg.Writes)
	} else {
		reports, err = soakValue(ctx, log, cfg.Subscribers, cfg.Writes)
	}
	printReports(cc.Out, cfg.Writes, reports)
	return err
}

type soakReport struct {
	Wakeups int
	Last    int
	Resets  int
}

func printReports(w io.Writer, writes int, reports []soakReport) {
	fmt.Fprintf(w, "%-4s %10s %10s %8s\n", "sub", "wakeups", "last", "resets")
	for i, r := range reports {
		fmt.Fprintf(w, "%-4d %10d %10d %8d\n", i, r.Wakeups, r.Last, r.Resets)
	}
	fmt.Fprintf(w, "writes: %d\n", writes)
}

// soakValue has subscribers follow a value counting up to writes. Each
// subscriber must see strictly increasing values.
func soakValue(ctx context.Context, log *slog.Logger, subscribers, writes int) ([]soakReport, error) {
	o := observable.New(0)
	reports := make([]soakReport, subscribers)
	errs := make([]error, subscribers)
	var wg sync.WaitGroup
	for i := range subscribers {
		sub := o.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			r := &reports[i]
			for {
				v, err := sub.Next(ctx)
				if errors.Is(err, observable.ErrClosed) {
					return
				}
				if err != nil {
					errs[i] = err
					return
				}
				if v <= r.Last {
					errs[i] = fmt.Errorf("subscriber %d saw %d after %d", i, v, r.Last)
					return
				}
				r.Wakeups++
				r.Last = v
			}
		}()
	}
	for v := 1; v <= writes; v++ {
		o.Set(v)
	}
	o.Close()
	wg.Wait()
	log.Debug("value soak done", "subscribers", subscribers, "writes", writes)
	return reports, errors.Join(errs...)
}

// soakVector has subscribers replicate a collection under random writes.
// After close every replica must equal the collection.
func soakVector(ctx context.Context, log *slog.Logger, subscribers, writes int) ([]soakReport, error) {
	o := vector.New[int](vector.Logger(log))
	reports := make([]soakReport, subscribers)
	replicas := make([]persist.Vector[int], subscribers)
	errs := make([]error, subscribers)
	var wg sync.WaitGroup
	for i := range subscribers {
		values, sub := o.Subscribe()
		replicas[i] = values
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			r := &reports[i]
			for {
				batch, err := sub.NextBatch(ctx)
				if errors.Is(err, vector.ErrClosed) {
					return
				}
				if err != nil {
					errs[i] = err
					return
				}
				r.Wakeups++
				for _, d := range batch {
					if d.Op == vector.OpReset {
						r.Resets++
					}
				}
				replicas[i] = vector.ApplyAll(batch, replicas[i])
				r.Last = replicas[i].Len()
			}
		}()
	}
	rnd := rand.New(rand.NewPCG(uint64(writes), uint64(subscribers)))
	for v := range writes {
		switch n := o.Len(); {
		case n > 0 && rnd.IntN(4) == 0:
			o.Remove(rnd.IntN(n))
		case n > 0 && rnd.IntN(3) == 0:
			o.Set(rnd.IntN(n), v)
		default:
			o.Insert(rnd.IntN(n+1), v)
		}
	}
	o.Close()
	wg.Wait()
	final := o.Values()
	for i, r := range replicas {
		if errs[i] == nil && !persist.Equal(r, final) {
			errs[i] = fmt.Errorf("subscriber %d replica diverged: %d values, want %d", i, r.Len(), final.Len())
		}
	}
	log.Debug("vector soak done", "subscribers", subscribers, "writes", writes, "len", final.Len())
	return reports, errors.Join(errs...)
}
