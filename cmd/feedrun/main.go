package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/memduhb/orderbook-strategy/internal/book"
	"github.com/memduhb/orderbook-strategy/internal/feed"
	"github.com/memduhb/orderbook-strategy/internal/itch"
	"github.com/memduhb/orderbook-strategy/internal/journal"
	"github.com/memduhb/orderbook-strategy/internal/obs"
	"github.com/memduhb/orderbook-strategy/internal/ops"
	"github.com/memduhb/orderbook-strategy/internal/schema"
	"github.com/memduhb/orderbook-strategy/internal/strategy"
	"github.com/memduhb/orderbook-strategy/internal/tape"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	feedPath := flag.String("feed", "", "Feed file to replay (overrides config)")
	bookID := flag.Uint("book", 0, "Order book id to track (overrides config)")
	verbose := flag.Bool("verbose", false, "Trace every event and snapshot to the tape")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaded, err := loadConfig(*configPath, *feedPath, uint32(*bookID))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: appName(loaded.Profiling.AppName),
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags: map[string]string{
				"env": "local",
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(ctx, loaded, *verbose || loaded.Tape.Verbose); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

func run(ctx context.Context, loaded ops.Loaded, verbose bool) error {
	sink := obs.Logs()
	metrics := obs.NewMetrics()

	file, err := os.Open(loaded.Feed.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	var jnl *journal.Journal
	if loaded.Journal.Driver != "" {
		jnl, err = journal.Open(journal.Config{
			Driver:   loaded.Journal.Driver,
			DSN:      loaded.Journal.DSN,
			Host:     loaded.Journal.Host,
			Port:     loaded.Journal.Port,
			User:     loaded.Journal.User,
			Password: loaded.Journal.Password,
			Database: loaded.Journal.Database,
			SSLMode:  loaded.Journal.SSLMode,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = jnl.Close()
		}()
	}

	printer := tape.New(tapeWriter(loaded.Tape))

	engine := book.NewEngine(loaded.Book, sink)
	stratCfg := loaded.Strategy
	stratCfg.OnTrade = func(t strategy.Trade) {
		metrics.IncTrade()
		printer.Trade(t)
		if jnl != nil {
			err := jnl.RecordTrade(journal.Trade{
				Timestamp: uint32(t.Timestamp),
				Side:      t.Side.String(),
				Price:     uint32(t.Price),
				Quantity:  t.Quantity,
				Position:  t.Position,
				PnL:       t.PnL,
			})
			if err != nil {
				sink.Errorf("journal: %v", err)
			}
		}
	}
	strat := strategy.New(stratCfg, sink)

	runner := feed.New(feed.Config{
		Parser:        itch.NewParser(file, sink),
		Engine:        engine,
		Strategy:      strat,
		TargetBook:    stratCfg.TargetBook,
		Metrics:       metrics,
		Sink:          sink,
		Tape:          printer,
		Verbose:       verbose,
		SnapshotDepth: loaded.Feed.SnapshotDepth,
	})
	runErr := runner.Run(ctx)

	snap := metrics.Snapshot()
	printer.Summary(snap.Batches, snap.Events, strat.Position(), strat.RealizedPnL(), engine.LastTradePrice())
	log.Printf("metrics: frames=%d framing_errors=%d events=%d unrecognized=%d book_warnings=%d batches=%d trades=%d batch_latency=%+v",
		snap.Frames, snap.FramingErrors, snap.Events, snap.Unrecognized,
		snap.BookWarnings, snap.Batches, snap.Trades, snap.BatchLatency)

	if jnl != nil {
		err := jnl.RecordSummary(journal.Summary{
			Batches:       snap.Batches,
			Events:        snap.Events,
			Trades:        snap.Trades,
			FinalPosition: strat.Position(),
			RealizedPnL:   strat.RealizedPnL(),
			LastPrice:     uint32(engine.LastTradePrice()),
			DayClosed:     strat.DayClosed(),
		})
		if err != nil {
			sink.Errorf("journal: %v", err)
		}
	}
	return runErr
}

func loadConfig(path, feedPath string, bookID uint32) (ops.Loaded, error) {
	loaded := ops.Default()
	if path != "" {
		var err error
		loaded, err = ops.Load(path)
		if err != nil {
			return ops.Loaded{}, err
		}
	}
	if feedPath != "" {
		loaded.Feed.Path = feedPath
	}
	if bookID != 0 {
		loaded.Feed.Book = bookID
		loaded.Strategy.TargetBook = schema.BookID(bookID)
	}
	return loaded, nil
}

// tapeWriter sends the tape to stdout, or to a rotating file when one is
// configured.
func tapeWriter(cfg ops.TapeConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
}

func appName(name string) string {
	if name == "" {
		return "feedrun"
	}
	return name
}
