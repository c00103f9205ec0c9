// Package history records every target a gantry factory produces in a
// Sqlite3 file, giving pipeline operators an audit trail of outputs.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bobg/errors"
	json "github.com/gibson042/canonicaljson-go"
	_ "github.com/mattn/go-sqlite3" // to get the "sqlite3" driver for sql.Open
	"github.com/pressly/goose/v3"

	"github.com/gantrybuild/gantry"
)

// DB is a [gantry.Observer] that uses a Sqlite3 file for persistent
// storage. Register it with a factory and every produced target gets a
// row with its identity hash, concrete type, path and creation time.
type DB struct {
	db   *sql.DB
	keep time.Duration
	clk  clock.Clock
}

var _ gantry.Observer = &DB{}

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens the given file and returns it as a *DB.
// The file is created if it doesn't already exist.
// Callers should call Close when finished operating on the database.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sqlite db %s", path)
	}

	goose.SetBaseFS(migrations)
	if err = goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting migration dialect")
	}
	if err = goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "executing db migrations")
	}

	result := &DB{db: db}
	for _, opt := range opts {
		opt(result)
	}
	if result.clk == nil {
		result.clk = clock.New()
	}
	return result, nil
}

// Close releases the resources of db.
func (db *DB) Close() error {
	return db.db.Close()
}

// Option is the type of a config option that can be passed to Open.
type Option func(*DB)

// Keep is an Option that sets the amount of time to keep a history row.
// By default, DB keeps all rows.
// Using Keep(d) allows DB to evict rows older than d as new ones arrive.
func Keep(d time.Duration) Option {
	return func(db *DB) {
		db.keep = d
	}
}

// WithClock is an Option that sets the database's clock.
// By default it's clock.New(),
// i.e. the normal time-telling clock.
// For testing this can be set to a mock clock.
func WithClock(clk clock.Clock) Option {
	return func(db *DB) {
		db.clk = clk
	}
}

// Record is one row of the history: a target the factory produced.
type Record struct {
	Type    string
	Path    string
	Created time.Time
}

// ObserveTarget implements gantry.Observer.
// If db was opened with the Keep option, rows older than the retention
// window are evicted on each insert.
func (db *DB) ObserveTarget(ctx context.Context, target gantry.Target) error {
	rec := Record{Type: fmt.Sprintf("%T", target)}
	if ft, ok := target.(gantry.FileTarget); ok {
		rec.Path = ft.Path()
	}
	h, err := identityHash(rec)
	if err != nil {
		return err
	}

	now := db.clk.Now()

	const q = `INSERT INTO targets (hash, type, path, unix_secs) VALUES ($1, $2, $3, $4)`
	if _, err := db.db.ExecContext(ctx, q, h, rec.Type, rec.Path, now.Unix()); err != nil {
		return errors.Wrap(err, "adding target to history")
	}

	if db.keep > 0 {
		const q2 = `DELETE FROM targets WHERE unix_secs < $1`
		when := now.Add(-db.keep).Unix()
		if _, err := db.db.ExecContext(ctx, q2, when); err != nil {
			return errors.Wrap(err, "evicting expired history rows")
		}
	}
	return nil
}

// Recent returns up to limit history records, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Record, error) {
	const q = `SELECT type, path, unix_secs FROM targets ORDER BY unix_secs DESC, rowid DESC LIMIT $1`
	rows, err := db.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var (
			rec  Record
			secs int64
		)
		if err := rows.Scan(&rec.Type, &rec.Path, &secs); err != nil {
			return nil, errors.Wrap(err, "scanning history row")
		}
		rec.Created = time.Unix(secs, 0)
		result = append(result, rec)
	}
	return result, errors.Wrap(rows.Err(), "iterating over history rows")
}

// identityHash is a stable digest of a target's identity, computed from
// the canonical JSON of its type and path.
func identityHash(rec Record) ([]byte, error) {
	s := struct {
		Type string `json:"type"`
		Path string `json:"path,omitempty"`
	}{
		Type: rec.Type,
		Path: rec.Path,
	}
	j, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "in JSON marshaling")
	}
	sum := sha256.Sum224(j)
	return sum[:], nil
}
