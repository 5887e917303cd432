// Package sqlite keeps encoded bundles in a SQLite database file using the
// pure Go glebarez/go-sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/caches/kv"
	"github.com/dgduncan/go-aside-cache/codec"
)

type Config struct {
	DSN string

	// Codec encodes bundles into the bundle column. Defaults to gob.
	Codec codec.Codec

	// PurgeInterval enables a background task deleting expired rows at
	// that interval. The task stops on Close or when the Open ctx is done.
	PurgeInterval time.Duration

	// Logger receives purge failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Provider stores rows as (key, expires, bundle) with expires in Unix
// nanoseconds. A row observed past its expiry is deleted on the spot.
type Provider struct {
	db         *sql.DB
	writeMutex *sync.Mutex

	stop      chan struct{}
	closeOnce sync.Once

	now func() time.Time
}

var _ kv.Provider = (*Provider)(nil)

// Open opens (or creates) the database at cfg.DSN and prepares the cache table.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.DSN == "" {
		return nil, caches.ValidationError{Reason: "empty dsn"}
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}

	for _, q := range []string{
		"CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, expires INTEGER, bundle BLOB)",
		"CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	p := &Provider{
		db:         db,
		writeMutex: &sync.Mutex{},
		stop:       make(chan struct{}),
		now:        time.Now,
	}

	if cfg.PurgeInterval > 0 {
		logger := cfg.Logger
		if logger == nil {
			logger = slog.Default()
		}
		go p.purgeTask(ctx, cfg.PurgeInterval, logger)
	}

	return p, nil
}

// New opens cfg.DSN and returns a cache backed by it.
func New(ctx context.Context, cfg Config) (*kv.Store, error) {
	p, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return kv.New(p, cfg.Codec), nil
}

func (s *Provider) expired(expires int64) bool {
	return s.now().UnixNano() >= expires
}

func (s *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var expires int64
	var bundle []byte
	err := s.db.QueryRowContext(ctx, "SELECT expires, bundle FROM cache WHERE key = ?", key).Scan(&expires, &bundle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.expired(expires) {
		if err := s.deleteExpired(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return bundle, true, nil
}

// Has reports whether a live row exists without reading the bundle.
func (s *Provider) Has(ctx context.Context, key string) (bool, error) {
	var expires int64
	err := s.db.QueryRowContext(ctx, "SELECT expires FROM cache WHERE key = ?", key).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if s.expired(expires) {
		return false, s.deleteExpired(ctx, key)
	}
	return true, nil
}

// deleteExpired removes key only if it is still expired, so a concurrent
// Set that replaced the row is kept.
func (s *Provider) deleteExpired(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ? AND expires <= ?", key, s.now().UnixNano())
	return err
}

func (s *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	expires := s.now().Add(caches.TTL(ttl))
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO cache (key, expires, bundle) VALUES (?, ?, ?)", key, expires.UnixNano(), value)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Provider) Del(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	return err
}

// Purge deletes rows whose expires has passed and returns how many went.
func (s *Provider) Purge(ctx context.Context) (int64, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE expires <= ?", s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Provider) purgeTask(ctx context.Context, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				logger.Error("error purging expired cache rows", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired cache rows", slog.Int64("rows", n))
			}
		}
	}
}

// Count returns the number of rows, expired or not.
func (s *Provider) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&n)
	return n, err
}

func (s *Provider) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}
