// Package db implements the per-worker database context contract spec §6
// requires of the surrounding node: begin/commit/rollback transactions,
// and a distinguished synchronization-conflict condition the dispatch loop
// (internal/dispatch) catches explicitly to trigger a retry.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

// ErrSyncConflict is the distinguished serialization-conflict condition
// spec §6/§7 requires: dispatch rolls back and returns retry_later when an
// operation raises it.
var ErrSyncConflict = errors.New("db: synchronization conflict")

var (
	connOnce sync.Once
	shared   *sqlx.DB
)

// Connect opens the shared *sqlx.DB once per process, the way
// repository.Connect does in the teacher, registering a sqlhooks-wrapped
// driver so every query is logged at debug level with its arguments before
// it runs. Elapsed time is not recorded.
func Connect(driver, dsn string) error {
	var err error
	connOnce.Do(func() {
		switch driver {
		case "sqlite3":
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryHooks{}))
			shared, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
			if err == nil {
				// sqlite does not support concurrent writers; with a single
				// connection, workers wait for it instead of contending for
				// sqlite's write lock. Any SQLITE_BUSY/SQLITE_LOCKED that
				// Commit does see is mapped to ErrSyncConflict.
				shared.SetMaxOpenConns(1)
			}
		default:
			err = fmt.Errorf("db: unsupported driver %q", driver)
		}
	})
	return err
}

// Shared returns the process-wide *sqlx.DB opened by Connect.
func Shared() *sqlx.DB {
	return shared
}

type queryHooks struct{}

func (queryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("db: query %s %v", query, args)
	return ctx, nil
}

func (queryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return ctx, nil
}

// Context is one worker's database handle: exactly one is created per
// worker at node start and reused for the worker's lifetime (spec §5).
type Context struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewContext wraps db for exclusive use by a single worker.
func NewContext(db *sqlx.DB) *Context {
	return &Context{db: db}
}

// Begin starts a transaction for the current request.
func (c *Context) Begin() error {
	tx, err := c.db.Beginx()
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Tx returns the in-progress transaction for handler queries.
func (c *Context) Tx() *sqlx.Tx {
	return c.tx
}

// Commit commits the current transaction. A serialization failure (sqlite
// SQLITE_BUSY/SQLITE_LOCKED) is reported as ErrSyncConflict; any other
// failure is returned unwrapped so the caller maps it to server_error
// (spec §7).
func (c *Context) Commit() error {
	err := c.tx.Commit()
	c.tx = nil
	if err == nil {
		return nil
	}
	if IsSyncConflict(err) {
		return ErrSyncConflict
	}
	return err
}

// Rollback rolls back the current transaction, swallowing
// sql.ErrTxDone (the transaction may already have been finished by a
// failed commit).
func (c *Context) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// IsSyncConflict reports whether err represents the database's
// serialization-conflict condition.
func IsSyncConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// RetryBackoff is a small fixed delay a transport may wait before
// re-queuing a retry_later frame, mirroring the spacing cc-backend's
// background workers use between poll attempts.
const RetryBackoff = 5 * time.Millisecond
