package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"

	_ "modernc.org/sqlite"
)

// SQLiteLedger persists the chain in a SQLite database.
type SQLiteLedger struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// migrations run in order, each exactly once, tracked by schema_version.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS blocks (
	height INTEGER PRIMARY KEY,
	hash TEXT NOT NULL UNIQUE,
	previous_hash TEXT NOT NULL,
	time TEXT NOT NULL,
	body TEXT NOT NULL
);
`,
}

// OpenSQLiteLedger opens the database at path, applies the schema and writes
// the genesis block when the chain is empty.
func OpenSQLiteLedger(ctx context.Context, path string, now func() time.Time) (*SQLiteLedger, error) {
	if now == nil {
		now = time.Now
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and writes ordered.
	db.SetMaxOpenConns(1)

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l := &SQLiteLedger{db: db, now: now}
	if err := l.ensureGenesis(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

var _ ports.Ledger = (*SQLiteLedger)(nil)

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	var version int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (l *SQLiteLedger) ensureGenesis(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.tip(ctx, l.db); err == nil {
		return nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	genesis, err := newGenesis(l.now())
	if err != nil {
		return err
	}
	return insertBlock(ctx, l.db, genesis)
}

// Close closes the database
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) Append(ctx context.Context, body json.RawMessage) (*core.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := l.tip(ctx, tx)
	if err != nil {
		return nil, err
	}
	b, err := nextBlock(*prev, body, l.now())
	if err != nil {
		return nil, err
	}
	if err := insertBlock(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit block %d: %w", b.Height, err)
	}
	return &b, nil
}

func (l *SQLiteLedger) GetBlock(ctx context.Context, height int64) (*core.Block, error) {
	const q = `SELECT height, hash, previous_hash, time, body FROM blocks WHERE height = ?`
	return scanBlock(l.db.QueryRowContext(ctx, q, height))
}

func (l *SQLiteLedger) Height(ctx context.Context) (int64, error) {
	b, err := l.tip(ctx, l.db)
	if err != nil {
		return 0, err
	}
	return b.Height, nil
}

func (l *SQLiteLedger) Validate(ctx context.Context) ([]int64, error) {
	const q = `SELECT height, hash, previous_hash, time, body FROM blocks ORDER BY height`
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var bad []int64
	var prev *core.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		if !validateLink(prev, *b) {
			bad = append(bad, b.Height)
		}
		prev = b
	}
	return bad, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (l *SQLiteLedger) tip(ctx context.Context, q queryer) (*core.Block, error) {
	const query = `SELECT height, hash, previous_hash, time, body FROM blocks ORDER BY height DESC LIMIT 1`
	return scanBlock(q.QueryRowContext(ctx, query))
}

func insertBlock(ctx context.Context, e execer, b core.Block) error {
	const q = `INSERT INTO blocks (height, hash, previous_hash, time, body) VALUES (?, ?, ?, ?, ?)`
	if _, err := e.ExecContext(ctx, q, b.Height, b.Hash, b.PreviousBlockHash, b.Time, string(b.Body)); err != nil {
		return fmt.Errorf("insert block %d: %w", b.Height, err)
	}
	return nil
}

func scanBlock(row scanner) (*core.Block, error) {
	var b core.Block
	var body string
	if err := row.Scan(&b.Height, &b.Hash, &b.PreviousBlockHash, &b.Time, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan block: %w", err)
	}
	b.Body = json.RawMessage(body)
	return &b, nil
}
