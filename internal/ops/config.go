// Package ops loads and validates the run configuration.
package ops

import (
	"os"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"github.com/memduhb/orderbook-strategy/internal/book"
	"github.com/memduhb/orderbook-strategy/internal/schema"
	"github.com/memduhb/orderbook-strategy/internal/strategy"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Feed      FeedConfig      `json:"feed"`
	Book      BookConfig      `json:"book"`
	Strategy  StrategyConfig  `json:"strategy"`
	Journal   JournalConfig   `json:"journal"`
	Tape      TapeConfig      `json:"tape"`
	Profiling ProfilingConfig `json:"profiling"`
}

// FeedConfig selects the input file and the instrument to track.
type FeedConfig struct {
	Path          string `json:"path"`
	Book          uint32 `json:"book"`
	SnapshotDepth int    `json:"snapshotDepth"`
}

// BookConfig tunes the engine's anomaly policy.
type BookConfig struct {
	MaxExecQty uint64 `json:"maxExecQty"`
}

// StrategyConfig fixes the gap rule's sizing and limits.
type StrategyConfig struct {
	OrderQty    int64  `json:"orderQty"`
	MaxPosition int64  `json:"maxPosition"`
	MinPosition int64  `json:"minPosition"`
	Tick        uint32 `json:"tick"`
}

// JournalConfig selects the optional trade journal backend.
type JournalConfig struct {
	Driver   string `json:"driver"` // "", "sqlite" or "postgres"
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// TapeConfig controls the human-readable trace output.
type TapeConfig struct {
	Verbose    bool   `json:"verbose"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
}

// ProfilingConfig enables the optional continuous profiler.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
	AppName       string `json:"appName"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Feed      FeedConfig
	Book      book.Config
	Strategy  strategy.Config
	Journal   JournalConfig
	Tape      TapeConfig
	Profiling ProfilingConfig
}

const (
	defaultSnapshotDepth = 3
	defaultOrderQty      = 100
	defaultMaxPosition   = 1000
)

// Default returns the configuration used when no file is given. The
// instrument must still come from a flag or file.
func Default() Loaded {
	return Loaded{
		Feed: FeedConfig{SnapshotDepth: defaultSnapshotDepth},
		Strategy: strategy.Config{
			OrderQty:    defaultOrderQty,
			MaxPosition: defaultMaxPosition,
			MinPosition: 0,
		},
	}
}

// Load reads a JSON config file and resolves defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return resolve(cfg), nil
}

func resolve(cfg FileConfig) Loaded {
	loaded := Default()

	if cfg.Feed.Path != "" {
		loaded.Feed.Path = cfg.Feed.Path
	}
	if cfg.Feed.Book != 0 {
		loaded.Feed.Book = cfg.Feed.Book
	}
	if cfg.Feed.SnapshotDepth > 0 {
		loaded.Feed.SnapshotDepth = cfg.Feed.SnapshotDepth
	}

	loaded.Book.MaxExecQty = schema.Quantity(cfg.Book.MaxExecQty)

	if cfg.Strategy.OrderQty != 0 {
		loaded.Strategy.OrderQty = cfg.Strategy.OrderQty
	}
	if cfg.Strategy.MaxPosition != 0 || cfg.Strategy.MinPosition != 0 {
		loaded.Strategy.MaxPosition = cfg.Strategy.MaxPosition
		loaded.Strategy.MinPosition = cfg.Strategy.MinPosition
	}
	loaded.Strategy.Tick = schema.Price(cfg.Strategy.Tick)
	loaded.Strategy.TargetBook = schema.BookID(cfg.Feed.Book)

	loaded.Journal = cfg.Journal
	loaded.Tape = cfg.Tape
	loaded.Profiling = cfg.Profiling
	return loaded
}

// Validate reports problems that make a run pointless. Strategy parameter
// problems are not checked here; the strategy reports those itself and keeps
// running inert.
func (l Loaded) Validate() error {
	if l.Feed.Path == "" {
		return errors.New("feed path is empty")
	}
	if l.Feed.Book == 0 {
		return errors.New("feed book is zero")
	}
	switch l.Journal.Driver {
	case "", "sqlite", "postgres":
	default:
		return errors.New("unknown journal driver: " + l.Journal.Driver)
	}
	return nil
}
