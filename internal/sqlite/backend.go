package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pinagent/pkg/types"
)

// DatabaseFile is the ledger file name inside DataDir.
const DatabaseFile = "ledger.db"

const (
	driverName  = "sqlite"
	busyTimeout = 5000 // milliseconds
	idleTimeout = 5 * time.Second
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Compile-time interface check.
var _ types.Ledger = (*Backend)(nil)

// Backend implements types.Ledger on a single SQLite file.
//
// Connections are borrowed from the pool for one statement (or one Clear
// transaction) and returned immediately, so two concurrently running streams
// contend only for the duration of a single write.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sqlx.DB

	now func() time.Time
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach opens (creating if needed) the ledger database in config.DataDir.
// Existing records are kept. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sqlx.Open(driverName, dsn(filepath.Join(dataDir, DatabaseFile)))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	db.SetConnMaxIdleTime(idleTimeout)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// Close implements types.Ledger.
func (b *Backend) Close() error {
	return b.Detach()
}

// Path returns the database file path, or "" when detached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return ""
	}
	dataDir := b.config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, DatabaseFile)
}

// handle returns the open database or ErrLedgerClosed.
func (b *Backend) handle() (*sqlx.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrLedgerClosed
	}
	return b.db, nil
}

// Exists reports whether a record with key is present in the kind's table.
func (b *Backend) Exists(ctx context.Context, kind types.Kind, key string) (bool, error) {
	tbl, ok := tables[kind]
	if !ok {
		return false, types.ErrUnknownKind
	}
	if key == "" {
		return false, types.ErrInvalidKey
	}
	db, err := b.handle()
	if err != nil {
		return false, err
	}

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", tbl.table, tbl.keyCol)
	if err := db.GetContext(ctx, &exists, query, key); err != nil {
		return false, fmt.Errorf("checking %s %q: %w", kind, key, err)
	}
	return exists, nil
}

// Record inserts rec with a single INSERT OR IGNORE statement. It returns
// true when a row was written and false when the key was already present.
func (b *Backend) Record(ctx context.Context, rec types.Record) (bool, error) {
	rec, ok := types.Deref(rec)
	if !ok {
		return false, types.ErrInvalidRecord
	}
	if rec.Key() == "" {
		return false, types.ErrInvalidKey
	}
	db, err := b.handle()
	if err != nil {
		return false, err
	}

	var res sql.Result
	switch r := types.Stamp(rec, b.now()).(type) {
	case types.PinRecord:
		res, err = db.ExecContext(ctx, insertPin,
			r.PinID, r.BoardKey, r.SourceURL, formatTime(r.CreatedAt))
	case types.BlogPinRecord:
		res, err = db.ExecContext(ctx, insertBlogPin,
			r.PostURL, r.PinID, formatTime(r.CreatedAt))
	case types.SearchedBoardRecord:
		res, err = db.ExecContext(ctx, insertSearchedBoard,
			r.SourceBoardID, formatTime(r.LastSearchedAt))
	default:
		return false, fmt.Errorf("%w: %T", types.ErrInvalidRecord, rec)
	}
	if err != nil {
		return false, fmt.Errorf("inserting %s %q: %w", rec.Kind(), rec.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

// Clear deletes every row of the tables in scope inside one transaction and
// returns the number of rows removed per table.
func (b *Backend) Clear(ctx context.Context, scope types.ClearScope) (types.Counts, error) {
	var counts types.Counts
	kinds := scope.Kinds()
	if len(kinds) == 0 {
		return counts, types.ErrUnknownScope
	}
	db, err := b.handle()
	if err != nil {
		return counts, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range kinds {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+tables[kind].table)
		if err != nil {
			return types.Counts{}, fmt.Errorf("clearing %s: %w", kind, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return types.Counts{}, fmt.Errorf("reading rows affected: %w", err)
		}
		counts.Add(kind, n)
	}

	if err := tx.Commit(); err != nil {
		return types.Counts{}, fmt.Errorf("committing clear: %w", err)
	}
	return counts, nil
}

// Counts returns the number of rows in each table.
func (b *Backend) Counts(ctx context.Context) (types.Counts, error) {
	var counts types.Counts
	db, err := b.handle()
	if err != nil {
		return counts, err
	}
	for _, kind := range types.Kinds {
		var n int64
		if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+tables[kind].table); err != nil {
			return types.Counts{}, fmt.Errorf("counting %s: %w", kind, err)
		}
		counts.Add(kind, n)
	}
	return counts, nil
}

// dsn builds a modernc connection string with WAL journaling and a busy
// timeout so concurrent writers wait instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.ToSlash(path), busyTimeout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
