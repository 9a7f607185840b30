package vector

import "log/slog"

// DefaultCapacity is the number of diff batches retained for lagging
// subscribers when no Capacity option is given.
const DefaultCapacity = 16

type options struct {
	capacity int
	log      *slog.Logger
}

// Option configures an Observable.
type Option func(*options)

// Capacity sets the number of diff batches retained for subscribers that
// fall behind. A subscriber more than n batches behind receives a single
// reset. Values below 1 are raised to 1.
func Capacity(n int) Option {
	return func(o *options) {
		o.capacity = max(n, 1)
	}
}

// Logger sets the logger used for debug records about broadcasts, lag and
// rollbacks.
func Logger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func makeOptions(opts []Option) options {
	res := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&res)
	}
	if res.log == nil {
		res.log = slog.Default()
	}
	return res
}
