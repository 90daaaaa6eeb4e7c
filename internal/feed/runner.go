// Package feed drives one replay: it pulls frames from the decoder, folds
// the target instrument's events into the book in arrival order, and hands
// the book to the strategy once per distinct timestamp.
package feed

import (
	"context"
	"io"
	"time"

	"github.com/yanun0323/errors"

	"github.com/memduhb/orderbook-strategy/internal/book"
	"github.com/memduhb/orderbook-strategy/internal/itch"
	"github.com/memduhb/orderbook-strategy/internal/obs"
	"github.com/memduhb/orderbook-strategy/internal/schema"
	"github.com/memduhb/orderbook-strategy/internal/strategy"
	"github.com/memduhb/orderbook-strategy/internal/tape"
)

// Config wires the runner's collaborators. Parser, Engine and Strategy are
// required; the rest are optional.
type Config struct {
	Parser   *itch.Parser
	Engine   *book.Engine
	Strategy *strategy.Gap

	TargetBook schema.BookID

	Metrics *obs.Metrics
	Sink    obs.Sink

	// Tape, when set with Verbose, traces every event and prints a depth
	// snapshot after each batch.
	Tape          *tape.Printer
	Verbose       bool
	SnapshotDepth int
}

// Runner replays one feed file to completion. Single-threaded; the apply
// path owns the book and the strategy exclusively.
type Runner struct {
	cfg  Config
	sink obs.Sink

	batch   []schema.Event
	batchNs schema.Nanos
}

// New builds a runner. A nil sink discards diagnostics.
func New(cfg Config) *Runner {
	sink := cfg.Sink
	if sink == nil {
		sink = obs.Nop()
	}
	return &Runner{cfg: cfg, sink: sink}
}

// Run consumes frames until EOF, context cancellation, or the market-close
// batch has been flushed. The pending batch is always flushed before
// returning, so the strategy sees every event that reached the book.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			r.flush()
			return errors.Wrap(err, "feed interrupted")
		}

		events, err := r.cfg.Parser.NextFrame()
		if err == io.EOF {
			r.flush()
			r.sink.Infof("feed: end of stream")
			return nil
		}
		if err != nil {
			r.flush()
			return errors.Wrap(err, "read frame")
		}

		r.cfg.Metrics.IncFrame()
		if len(events) == 0 {
			r.cfg.Metrics.IncFramingError()
			continue
		}

		unrecognized := 0
		closed := false
		for _, ev := range events {
			if ev.Kind() == schema.KindUnrecognized {
				unrecognized++
				continue
			}
			if ev.Book() != r.cfg.TargetBook {
				continue
			}
			if r.cfg.Verbose && r.cfg.Tape != nil {
				r.cfg.Tape.Event(ev)
			}
			// A new timestamp closes the pending batch before this event
			// joins the next one.
			if len(r.batch) > 0 && ev.Nanos() != r.batchNs {
				r.flush()
				if r.cfg.Strategy.DayClosed() {
					closed = true
					break
				}
			}
			r.batchNs = ev.Nanos()
			r.batch = append(r.batch, ev)
		}
		r.cfg.Metrics.AddEvents(len(events), unrecognized)

		if closed || r.cfg.Strategy.DayClosed() {
			r.flush()
			r.sink.Infof("feed: market closed, stopping replay")
			return nil
		}
	}
}

// flush applies the pending batch to the book in arrival order, then runs
// the strategy once against the resulting state.
func (r *Runner) flush() {
	if len(r.batch) == 0 {
		return
	}
	start := time.Now()
	warnsBefore := r.cfg.Engine.Warnings()

	for _, ev := range r.batch {
		r.cfg.Engine.Apply(ev)
	}
	r.cfg.Strategy.OnBatch(r.batchNs, r.cfg.Engine, r.batch)

	for i := warnsBefore; i < r.cfg.Engine.Warnings(); i++ {
		r.cfg.Metrics.IncBookWarning()
	}
	r.cfg.Metrics.ObserveBatch(time.Since(start))

	if r.cfg.Verbose && r.cfg.Tape != nil {
		r.cfg.Tape.Snapshot(r.cfg.Engine, r.cfg.SnapshotDepth, r.batchNs)
	}
	r.batch = r.batch[:0]
}
