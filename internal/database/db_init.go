package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteStore keeps posts in a single sqlite3 database file
type SQLiteStore struct {
	db       *sql.DB
	dbconfig *DBConfig
	now      func() time.Time
}

// DBConfig represents sqlite database configuration
type DBConfig struct {
	// Database file, ":memory:" is not supported since the pool opens
	// several connections
	Path string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings
	WALMode     bool   // Write-Ahead Logging
	SyncMode    string // OFF, NORMAL, FULL
	CacheSize   int    // KB
	TempStore   string // MEMORY, FILE
	BusyTimeout time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		Path:            "./data/pugblog.sq3",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 0, // Unlimited for SQLite - connections don't need to be recycled
		WALMode:         true,
		SyncMode:        "NORMAL",
		CacheSize:       -16384, // -16384 == 1024 KB * 16384 = 16MB cache
		TempStore:       "MEMORY",
		BusyTimeout:     30 * time.Second,
	}
}

// OpenSQLite opens (and creates if needed) the database at dbconfig.Path
// and applies pending migrations.
func OpenSQLite(ctx context.Context, dbconfig *DBConfig) (*SQLiteStore, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}
	log.Info().Str("path", dbconfig.Path).Msg("initializing sqlite database")

	if err := createDirIfNotExists(filepath.Dir(dbconfig.Path)); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbconfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbconfig.MaxOpenConns)
	db.SetMaxIdleConns(dbconfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbconfig.ConnMaxLifetime)

	s := &SQLiteStore{
		db:       db,
		dbconfig: dbconfig,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, s.closeAfter(fmt.Errorf("failed to ping database: %w", err))
	}
	if err := s.applySQLitePragmas(ctx); err != nil {
		return nil, s.closeAfter(fmt.Errorf("failed to apply SQLite pragmas: %w", err))
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, s.closeAfter(fmt.Errorf("failed to run database migrations: %w", err))
	}
	return s, nil
}

func (s *SQLiteStore) closeAfter(err error) error {
	if cerr := s.db.Close(); cerr != nil {
		return fmt.Errorf("%w; also failed to close database: %v", err, cerr)
	}
	return err
}

// DSN returns the driver connection string. Per-connection pragmas go
// into the DSN so every pooled connection gets them.
func (c *DBConfig) DSN() string {
	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	params.Set("_synchronous", c.SyncMode)
	params.Set("_cache_size", strconv.Itoa(c.CacheSize))
	params.Set("_foreign_keys", "on")
	if c.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	return "file:" + c.Path + "?" + params.Encode()
}

// applySQLitePragmas applies the pragmas the DSN cannot carry
func (s *SQLiteStore) applySQLitePragmas(ctx context.Context) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA temp_store = %s", s.dbconfig.TempStore),
	}

	if s.dbconfig.WALMode {
		pragmas = append(pragmas, "PRAGMA wal_autocheckpoint = 1000")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	log.Info().Str("path", s.dbconfig.Path).Msg("closing sqlite database")
	return s.db.Close()
}

// createDirIfNotExists creates a directory if it doesn't exist
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
