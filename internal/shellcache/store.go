package shellcache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/five82/cpsync/internal/logging"
)

// Entry is a stored response.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Response rebuilds an *http.Response for req from the stored entry.
func (e Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(CacheHeader, "hit")
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Cache stores shell responses grouped by generation name in SQLite.
// Only the generation it was opened with is read from or written to; older
// generations are left for Activate to purge.
type Cache struct {
	db         *sql.DB
	generation string
	logger     *zap.Logger
}

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path, generation string, logger *zap.Logger) (*Cache, error) {
	if generation == "" {
		return nil, errors.New("cache generation name is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	c := &Cache{db: db, generation: generation, logger: logging.OrNop(logger)}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Generation returns the live generation name.
func (c *Cache) Generation() string {
	return c.generation
}

func (c *Cache) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS shell_cache (
			generation TEXT NOT NULL,
			url TEXT NOT NULL,
			status INTEGER NOT NULL,
			header_json TEXT NOT NULL,
			body BLOB NOT NULL,
			stored_at TEXT NOT NULL,
			PRIMARY KEY (generation, url)
		);`,
	}
	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

// Match looks key up in the live generation.
func (c *Cache) Match(ctx context.Context, key string) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT status, header_json, body, stored_at FROM shell_cache WHERE generation = ? AND url = ?`,
		c.generation, key)

	var (
		entry      = Entry{URL: key}
		headerJSON string
		storedAt   string
	)
	if err := row.Scan(&entry.Status, &headerJSON, &entry.Body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("match %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(headerJSON), &entry.Header); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached header: %w", err)
	}
	entry.StoredAt, _ = time.Parse(time.RFC3339Nano, storedAt)
	return entry, true, nil
}

// Put stores entry in the live generation, replacing any previous copy.
func (c *Cache) Put(ctx context.Context, entry Entry) error {
	return putEntry(ctx, c.db, c.generation, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putEntry(ctx context.Context, db execer, generation string, entry Entry) error {
	if IsDeviceEndpoint(entry.URL) {
		return fmt.Errorf("refusing to cache device endpoint %s", entry.URL)
	}
	headerJSON, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO shell_cache (generation, url, status, header_json, body, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(generation, url) DO UPDATE SET
			status = excluded.status,
			header_json = excluded.header_json,
			body = excluded.body,
			stored_at = excluded.stored_at`,
		generation, entry.URL, entry.Status, string(headerJSON), body,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store %s: %w", entry.URL, err)
	}
	return nil
}

// Keys lists the URLs stored under generation.
func (c *Cache) Keys(ctx context.Context, generation string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT url FROM shell_cache WHERE generation = ? ORDER BY url`, generation)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Generations lists every generation with at least one stored entry.
func (c *Cache) Generations(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT generation FROM shell_cache ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteGeneration removes every entry stored under name.
func (c *Cache) DeleteGeneration(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM shell_cache WHERE generation = ?`, name); err != nil {
		return fmt.Errorf("delete generation %s: %w", name, err)
	}
	return nil
}
