package database

import (
	"fmt"
	"net/url"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/oakhill-robotics/attendance/pkg/config"
	appErrors "github.com/oakhill-robotics/attendance/pkg/errors"
)

func init() {
	// modernc registers itself as "sqlite"; teach sqlx its placeholder style.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to an existing attendance store. The file must already be
// present on disk; a missing file means the caller pointed the application
// at the wrong place and is reported as a store integrity failure.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindStoreIntegrity,
			fmt.Sprintf("database file at %s does not exist", cfg.Path))
	}
	return connect(cfg)
}

// Create initialises a brand-new attendance store at cfg.Path and creates
// the schema. The file must not already exist.
func Create(cfg config.DatabaseConfig, enforceUniqueEmail bool) (*sqlx.DB, error) {
	if _, err := os.Stat(cfg.Path); err == nil {
		return nil, appErrors.New(appErrors.KindStoreIntegrity,
			fmt.Sprintf("cannot create new database at %s, file already exists", cfg.Path))
	}
	db, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := CreateTables(db, enforceUniqueEmail); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	busyMillis := int64(5000)
	if cfg.BusyTimeout > 0 {
		busyMillis = cfg.BusyTimeout.Milliseconds()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		url.PathEscape(cfg.Path), busyMillis)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// Single-writer model: one connection keeps every repository operation
	// serialized at the pool level, matching the embedded database's own
	// locking behaviour.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}

	return db, nil
}
