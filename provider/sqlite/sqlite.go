// Package sqlite is a durable Provider backed by a single SQLite table.
// It suits on-device caches that must survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const DefaultTable = "swr_entries"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type Provider struct {
	db      *sql.DB
	ownsDB  bool
	table   string
	now     func() time.Time
	getQ    string
	setQ    string
	delQ    string
	expireQ string
	countQ  string
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// DSN is passed to the "sqlite" driver, e.g. "file:cache.db" or ":memory:".
	// Ignored when DB is set.
	DSN string
	// DB reuses an existing handle. The provider does not close it.
	DB    *sql.DB
	Table string // "" => DefaultTable
	Now   func() time.Time
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("sqlite provider: invalid table name %q", table)
	}

	db, owns := cfg.DB, false
	if db == nil {
		if cfg.DSN == "" {
			return nil, errors.New("sqlite provider: DSN or DB is required")
		}
		var err error
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite provider: open %q: %w", cfg.DSN, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		owns = true
	}

	p := &Provider{
		db:      db,
		ownsDB:  owns,
		table:   table,
		now:     time.Now,
		getQ:    fmt.Sprintf(`SELECT cache_value, expires_at FROM "%s" WHERE cache_key = ?`, table),
		setQ:    fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (cache_key, cache_value, expires_at, updated_at) VALUES (?, ?, ?, ?)`, table),
		delQ:    fmt.Sprintf(`DELETE FROM "%s" WHERE cache_key = ?`, table),
		expireQ: fmt.Sprintf(`DELETE FROM "%s" WHERE cache_key = ? AND expires_at = ?`, table),
		countQ:  fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table),
	}
	if cfg.Now != nil {
		p.now = cfg.Now
	}

	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			cache_key   TEXT PRIMARY KEY,
			cache_value BLOB NOT NULL,
			expires_at  INTEGER NOT NULL DEFAULT 0,
			updated_at  INTEGER NOT NULL
		);`, table)
	if _, err := db.ExecContext(ctx, create); err != nil {
		if owns {
			_ = db.Close()
		}
		return nil, fmt.Errorf("sqlite provider: create table %s: %w", table, err)
	}
	return p, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		exp   int64
	)
	err := p.db.QueryRowContext(ctx, p.getQ, key).Scan(&value, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if exp > 0 && p.now().UnixMilli() > exp {
		// only drop the row we saw; a concurrent Set may have replaced it
		if _, err := p.db.ExecContext(ctx, p.expireQ, key, exp); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	now := p.now()
	var exp int64
	if ttl > 0 {
		exp = now.Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}
	if _, err := p.db.ExecContext(ctx, p.setQ, key, value, exp, now.UnixMilli()); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, p.delQ, key)
	return err
}

// Count returns the number of stored rows.
func (p *Provider) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, p.countQ).Scan(&n)
	return n, err
}

func (p *Provider) Close(_ context.Context) error {
	if p.ownsDB {
		return p.db.Close()
	}
	return nil
}
