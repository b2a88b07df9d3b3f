// Package sqlite provides a [storage.Substrate] backed by a SQLite database
// file that several processes open concurrently.
//
// Foreign writes are detected by polling PRAGMA data_version, which only
// changes when another connection commits, and diffing the key table against
// the last observed snapshot. Writes made through a Substrate update its
// snapshot under the same lock as the poller, so they never self-notify.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthSync/storage"
	_ "modernc.org/sqlite"
)

// ErrSQLiteUnavailable wraps driver failures.
var ErrSQLiteUnavailable = errors.New("sqlite unavailable")

const defaultPollInterval = 250 * time.Millisecond

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Options tunes the substrate.
type Options struct {
	// PollInterval is how often data_version is checked. Zero selects 250ms.
	PollInterval time.Duration
}

// Substrate is one execution context's view of a shared SQLite file.
type Substrate struct {
	db       *sql.DB
	interval time.Duration

	mu       sync.Mutex
	snapshot map[string]string
	version  int64
	handlers map[uint64]storage.Handler
	nextID   uint64
	stop     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

var _ storage.Substrate = (*Substrate)(nil)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, opts Options) (*Substrate, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	// data_version is per connection; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}

	s := &Substrate{
		db:       db,
		interval: interval,
		handlers: make(map[uint64]storage.Handler),
	}
	if s.version, err = s.dataVersion(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.snapshot, err = s.readAll(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Substrate) Get(ctx context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, storage.ErrClosed
	}
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&val)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	return val, true, nil
}

// Read fetches keys with one SELECT, which sees a single committed state.
func (s *Substrate) Read(ctx context.Context, keys ...string) (map[string]string, error) {
	if s.isClosed() {
		return nil, storage.ErrClosed
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := `SELECT key, value FROM kv WHERE key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	return out, nil
}

func (s *Substrate) Set(ctx context.Context, key, value string) error {
	return s.Apply(ctx, storage.Put(key, value))
}

func (s *Substrate) Delete(ctx context.Context, key string) error {
	return s.Apply(ctx, storage.Remove(key))
}

// Apply commits changes in one transaction. Pollers in other processes read
// the table in a single query after data_version moves, so they see either
// none or all of the batch.
func (s *Substrate) Apply(ctx context.Context, changes ...storage.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	for _, c := range changes {
		if c.Present {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, c.Key, c.Value)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, c.Key)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}

	for _, c := range changes {
		if c.Present {
			s.snapshot[c.Key] = c.Value
		} else {
			delete(s.snapshot, c.Key)
		}
	}
	return nil
}

// Subscribe registers h and starts the poller on first use.
func (s *Substrate) Subscribe(h storage.Handler) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	if s.stop == nil {
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.run(s.stop)
	}

	id := s.nextID
	s.nextID++
	s.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Substrate) run(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			changes, handlers := s.poll(context.Background())
			for _, c := range changes {
				for _, h := range handlers {
					h(c)
				}
			}
		}
	}
}

// poll returns the foreign changes committed since the last poll together
// with the handlers to deliver them to.
func (s *Substrate) poll(ctx context.Context) ([]storage.Change, []storage.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}

	version, err := s.dataVersion(ctx)
	if err != nil || version == s.version {
		return nil, nil
	}
	current, err := s.readAll(ctx)
	if err != nil {
		return nil, nil
	}
	s.version = version

	changes := diff(s.snapshot, current)
	s.snapshot = current

	handlers := make([]storage.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	return changes, handlers
}

func diff(prev, next map[string]string) []storage.Change {
	keys := make([]string, 0, len(prev)+len(next))
	for k := range prev {
		keys = append(keys, k)
	}
	for k := range next {
		if _, ok := prev[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []storage.Change
	for _, k := range keys {
		oldVal, hadOld := prev[k]
		newVal, hasNew := next[k]
		switch {
		case hasNew && (!hadOld || oldVal != newVal):
			out = append(out, storage.Change{Key: k, Value: newVal, Present: true})
		case !hasNew && hadOld:
			out = append(out, storage.Change{Key: k})
		}
	}
	return out
}

func (s *Substrate) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	return v, nil
}

func (s *Substrate) readAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSQLiteUnavailable, err)
	}
	return out, nil
}

// Close stops the poller and closes the database handle.
func (s *Substrate) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	s.handlers = map[uint64]storage.Handler{}
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.wg.Wait()
	}
	return s.db.Close()
}

func (s *Substrate) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
