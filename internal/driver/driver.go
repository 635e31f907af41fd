package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second
)

// Ticker is advanced once per driver tick.
type Ticker interface {
	Tick(context.Context) error
}

// Driver advances every ticker on a fixed interval until its context ends.
type Driver struct {
	tickLength time.Duration
	tickers    []Ticker
}

type DriverOpt func(*Driver)

func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}

func NewDriver(tickers []Ticker, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		tickers:    tickers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "driver started", "tick_length", d.tickLength.String(), "tickers", len(d.tickers))

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick advances each ticker once. A failing ticker is logged and does not
// stop the others.
func (d *Driver) Tick(ctx context.Context) {
	for _, t := range d.tickers {
		if err := t.Tick(ctx); err != nil {
			slog.WarnContext(ctx, "tick failed", "error", err)
		}
	}
}
