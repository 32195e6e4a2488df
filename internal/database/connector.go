package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/livepoll/livepoll-backend/internal/config"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxBackoff = 10 * time.Second

// ErrNotReady is returned by DB before a connection has been established
var ErrNotReady = errors.New("database not ready")

// Connector owns the database connection for the process lifetime.
// Connect retries with exponential backoff and closes Ready on success.
type Connector struct {
	cfg   config.DatabaseConfig
	debug bool
	open  func() (*gorm.DB, error)
	sleep func(ctx context.Context, d time.Duration) error

	ready chan struct{}
	once  sync.Once
	mu    sync.RWMutex
	db    *gorm.DB
}

// NewConnector creates a Connector for cfg; debug enables SQL logging
func NewConnector(cfg config.DatabaseConfig, debug bool) *Connector {
	c := &Connector{
		cfg:   cfg,
		debug: debug,
		sleep: sleepCtx,
		ready: make(chan struct{}),
	}
	c.open = c.openGorm
	return c
}

// Connect dials the database, retrying up to ConnectRetries times
func (c *Connector) Connect(ctx context.Context) (*gorm.DB, error) {
	attempts := c.cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.cfg.RetryBackoff()
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := c.open()
		if err == nil {
			err = c.ping(ctx, db)
		}
		if err == nil {
			c.mu.Lock()
			c.db = db
			c.mu.Unlock()
			c.once.Do(func() { close(c.ready) })
			pkglogger.Info("connected to %s database (attempt %d/%d)", c.cfg.Driver, attempt, attempts)
			return db, nil
		}

		lastErr = err
		pkglogger.Warn("database connect attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, fmt.Errorf("connect %s after %d attempts: %w", c.cfg.Driver, attempts, lastErr)
}

// Ready is closed once a connection is established
func (c *Connector) Ready() <-chan struct{} {
	return c.ready
}

// IsReady reports whether Connect has succeeded
func (c *Connector) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// DB returns the connection or ErrNotReady
func (c *Connector) DB() (*gorm.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotReady
	}
	return c.db, nil
}

// Ping checks the live connection
func (c *Connector) Ping(ctx context.Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	return c.ping(ctx, db)
}

// Close releases the pool
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	return sqlDB.Close()
}

func (c *Connector) ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

func (c *Connector) openGorm() (*gorm.DB, error) {
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if c.debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.cfg.Driver == "sqlite" {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(c.cfg.ConnMaxLifetime) * time.Second)
	}
	return db, nil
}

func (c *Connector) dialector() (gorm.Dialector, error) {
	switch c.cfg.Driver {
	case "sqlite":
		return sqlite.Open(c.cfg.SQLitePath), nil
	case "mysql", "":
		mysqlCfg, err := mysqldriver.ParseDSN(c.cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("parse DSN: %w", err)
		}
		if mysqlCfg.Params == nil {
			mysqlCfg.Params = map[string]string{}
		}
		mysqlCfg.Params["time_zone"] = "'+00:00'"
		return mysql.Open(mysqlCfg.FormatDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.cfg.Driver)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
