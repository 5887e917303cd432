package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches"
	"github.com/dgduncan/go-aside-cache/codec"
)

var (
	// ErrPingFailed is returned if the initial ping to the database returns an error
	ErrPingFailed = errors.New("ping returned error")
)

var (
	//go:embed create_table.sql
	queryCreateTable string
	//go:embed delete_expired.sql
	queryDeleteExpired string
	//go:embed fetch_by_id.sql
	queryFetchByID string
	//go:embed contains.sql
	queryContains string
	//go:embed upsert_item.sql
	queryUpsertItem string
	//go:embed delete_item.sql
	queryDeleteItem string
	//go:embed delete_expired_item.sql
	queryDeleteExpiredItem string
)

// Config defines the configuration options for the PostgreSQL cache implementation.
type Config struct {
	// DeleteExpiredItems enables automatic cleanup of expired cache entries
	// through a background task.
	DeleteExpiredItems bool

	// ExpiredTaskTimer defines the interval at which the cleanup task runs.
	// Shorter durations may impact database performance.
	ExpiredTaskTimer time.Duration

	// Codec encodes bundles into the bundle column. Defaults to gob.
	Codec codec.Codec

	// Logger receives sweeper failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache implements the goasidecache.Cache interface using PostgreSQL as the storage backend.
// A row read after its expired_at is deleted and reported absent.
type Cache struct {
	db    *sql.DB
	codec codec.Codec

	now func() time.Time
}

var _ goasidecache.Cache = (*Cache)(nil)

// live reports whether a row expiring at expiredAt may be served, deleting
// it when not.
func (p *Cache) live(ctx context.Context, k string, expiredAt time.Time) (bool, error) {
	now := p.now().UTC()
	if now.Before(expiredAt) {
		return true, nil
	}
	if _, err := p.db.ExecContext(ctx, queryDeleteExpiredItem, k, now); err != nil {
		return false, err
	}
	return false, nil
}

func (p *Cache) Contains(ctx context.Context, k string) (bool, error) {
	var expiredAt time.Time
	err := p.db.QueryRowContext(ctx, queryContains, k).Scan(&expiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.live(ctx, k, expiredAt)
}

// Fetch retrieves a bundle from PostgreSQL by its key.
// Returns caches.ErrNotFound if the row doesn't exist or has expired.
func (p *Cache) Fetch(ctx context.Context, k string) (*goasidecache.Bundle, error) {
	stmt, err := p.db.PrepareContext(ctx, queryFetchByID)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var data []byte
	var expiredAt time.Time
	if err := stmt.QueryRowContext(ctx, k).Scan(&data, &expiredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, caches.ErrNotFound
		}
		return nil, err
	}

	ok, err := p.live(ctx, k, expiredAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, caches.ErrNotFound
	}

	return p.codec.Decode(data)
}

// Save upserts the bundle with expired_at set to now plus ttl, or plus
// caches.DefaultExpiredDuration when ttl is not positive.
func (p *Cache) Save(ctx context.Context, k string, v *goasidecache.Bundle, ttl time.Duration) error {
	data, err := p.codec.Encode(v)
	if err != nil {
		return err
	}

	stmt, err := p.db.PrepareContext(ctx, queryUpsertItem)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := p.now().UTC()
	_, err = stmt.ExecContext(ctx, k, data, now, now.Add(caches.TTL(ttl)))
	return err
}

func (p *Cache) Delete(ctx context.Context, k string) error {
	_, err := p.db.ExecContext(ctx, queryDeleteItem, k)
	return err
}

func createTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, queryCreateTable)
	return err
}

func deleteExpiredItems(ctx context.Context, db *sql.DB, now time.Time) error {
	_, err := db.ExecContext(ctx, queryDeleteExpired, now.UTC())
	return err
}

func (p *Cache) expiredTask(ctx context.Context, every time.Duration, logger *slog.Logger) {
	t := time.NewTimer(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("expired item sweeper stopped")
			return
		case <-t.C:
			if err := deleteExpiredItems(ctx, p.db, p.now()); err != nil {
				logger.Error("error deleting expired cache items", slog.Any("error", err))
			}
			_ = t.Reset(every)
		}
	}
}

// New creates a new PostgreSQL cache instance with the provided configuration.
// It verifies the database connection, creates the necessary table structure, and
// optionally starts the cleanup task for expired items. The task stops when ctx is done.
//
// Returns an error if:
// - The database connection test fails
// - Table creation fails
func New(ctx context.Context, db *sql.DB, config *Config) (*Cache, error) {
	if db == nil {
		return nil, caches.ValidationError{Reason: "nil db"}
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(ErrPingFailed, err)
	}

	if err := createTable(ctx, db); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}

	c := &Cache{
		db:    db,
		codec: config.Codec,

		now: time.Now,
	}
	if c.codec == nil {
		c.codec = codec.Default
	}

	if config.DeleteExpiredItems {
		every := config.ExpiredTaskTimer
		if every <= 0 {
			every = caches.DefaultExpiredTaskTimer
		}
		logger := config.Logger
		if logger == nil {
			logger = slog.Default()
		}
		go c.expiredTask(ctx, every, logger)
	}

	return c, nil
}
