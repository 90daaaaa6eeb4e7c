// Package journal persists strategy fills and the end-of-day summary.
//
// The journal is presentation-side bookkeeping: the order book itself is
// never persisted and every run rebuilds it from the feed.
package journal

import (
	"fmt"
	"net/url"

	"github.com/glebarez/sqlite"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Config selects and parameterizes the backend.
type Config struct {
	Driver   string // "sqlite" or "postgres"
	DSN      string // sqlite file path, or a full postgres conn string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Trade is one recorded strategy fill.
type Trade struct {
	ID        uint   `gorm:"primaryKey"`
	Timestamp uint32 `gorm:"index"`
	Side      string
	Price     uint32
	Quantity  int64
	Position  int64
	PnL       int64
}

// Summary is the end-of-run record.
type Summary struct {
	ID            uint `gorm:"primaryKey"`
	Batches       uint64
	Events        uint64
	Trades        uint64
	FinalPosition int64
	RealizedPnL   int64
	LastPrice     uint32
	DayClosed     bool
}

// Journal wraps the gorm handle.
type Journal struct {
	db *gorm.DB
}

// Open connects to the configured backend and migrates the schema.
func Open(cfg Config) (*Journal, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.dsn()), gormCfg)
	default:
		return nil, errors.New("journal: unknown driver " + cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	if err := db.AutoMigrate(&Trade{}, &Summary{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal")
	}
	return &Journal{db: db}, nil
}

// RecordTrade appends one fill.
func (j *Journal) RecordTrade(t Trade) error {
	if j == nil {
		return nil
	}
	return errors.Wrap(j.db.Create(&t).Error, "record trade")
}

// RecordSummary appends the end-of-run record.
func (j *Journal) RecordSummary(s Summary) error {
	if j == nil {
		return nil
	}
	return errors.Wrap(j.db.Create(&s).Error, "record summary")
}

// Trades returns all recorded fills in insertion order.
func (j *Journal) Trades() ([]Trade, error) {
	if j == nil {
		return nil, nil
	}
	var trades []Trade
	if err := j.db.Order("id").Find(&trades).Error; err != nil {
		return nil, errors.Wrap(err, "load trades")
	}
	return trades, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// dsn builds a postgres connection string from the discrete fields unless a
// full conn string was given.
func (cfg Config) dsn() string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}
