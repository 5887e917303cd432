package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	goasidecache "github.com/dgduncan/go-aside-cache"
	"github.com/dgduncan/go-aside-cache/caches/bigcache"
	"github.com/dgduncan/go-aside-cache/caches/dynamodb"
	"github.com/dgduncan/go-aside-cache/caches/kv"
	"github.com/dgduncan/go-aside-cache/caches/local"
	"github.com/dgduncan/go-aside-cache/caches/postgres"
	"github.com/dgduncan/go-aside-cache/caches/redis"
	"github.com/dgduncan/go-aside-cache/caches/ristretto"
	"github.com/dgduncan/go-aside-cache/caches/sqlite"
	"github.com/dgduncan/go-aside-cache/caches/sturdyc"
	zerologadapter "github.com/dgduncan/go-aside-cache/log/zerolog"
	"github.com/dgduncan/go-aside-cache/metrics"
)

var (
	configFlag  string
	portFlag    int
	storeFlag   string
	dsnFlag     string
	tableFlag   string
	verboseFlag bool
)

func init() {
	flag.StringVar(&configFlag, "config", "", "YAML configuration file")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&storeFlag, "store", "memory", "Cache store: memory, sqlite, postgres, redis, dynamodb, bigcache, ristretto or sturdyc")
	flag.StringVar(&dsnFlag, "dsn", "", "Store connection string (sqlite file, postgres or redis URL)")
	flag.StringVar(&tableFlag, "table", "aside-cache", "DynamoDB table name")
	flag.BoolVar(&verboseFlag, "v", false, "Verbosity: debug logging")
}

func main() {
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if verboseFlag {
		logLevel = zerolog.DebugLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("asidecache stopped")
	}
}

func run(ctx context.Context) error {
	var opts []goasidecache.Option
	if configFlag != "" {
		fc, err := goasidecache.LoadConfig(configFlag)
		if err != nil {
			return err
		}
		opts = fc.Options()
	}

	rec, err := metrics.NewRecorder(nil)
	if err != nil {
		return err
	}
	opts = append(opts, goasidecache.WithRecorder(rec))

	cache, closeCache, err := openStore(ctx, storeFlag, dsnFlag, tableFlag, rec)
	if err != nil {
		return fmt.Errorf("open %s store: %w", storeFlag, err)
	}
	defer closeCache()

	middleware := goasidecache.New(cache, nil, zerologadapter.Logger{L: log.Logger}, opts...)
	client := &http.Client{
		Transport: middleware(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", portFlag),
		Handler:           newRouter(client, rec.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("Serving %s store on port %d", storeFlag, portFlag)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openStore builds the named cache. The returned func releases its resources.
func openStore(ctx context.Context, name, dsn, table string, rec *metrics.Recorder) (goasidecache.Cache, func(), error) {
	noop := func() {}

	switch name {
	case "memory":
		return local.NewBasicCache(), noop, nil

	case "sqlite":
		if dsn == "" {
			dsn = "cache.db"
		} else if dsn == "memory" {
			dsn = "file::memory:?cache=shared"
		}
		store, err := sqlite.New(ctx, sqlite.Config{DSN: dsn, PurgeInterval: time.Minute})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, err
		}
		c, err := postgres.New(ctx, db, &postgres.Config{DeleteExpiredItems: true})
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return c, func() { _ = db.Close() }, nil

	case "redis":
		if dsn == "" {
			dsn = "redis://localhost:6379/0"
		}
		ro, err := goredis.ParseURL(dsn)
		if err != nil {
			return nil, nil, err
		}
		store, err := redis.New(redis.Config{
			Client:      goredis.NewClient(ro),
			Prefix:      "aside:",
			CloseClient: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "dynamodb":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		client := awsdynamodb.NewFromConfig(cfg)
		if err := dynamodb.CreateTable(ctx, client, table); err != nil {
			return nil, nil, err
		}
		c, err := dynamodb.New(ctx, client, &dynamodb.Config{Table: table})
		if err != nil {
			return nil, nil, err
		}
		return c, noop, nil

	case "bigcache":
		store, err := bigcache.New(bigcache.Config{LifeWindow: time.Hour})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "ristretto":
		p, err := ristretto.NewProvider(ristretto.Config{NumCounters: 1e5, MaxCost: 64 << 20, BufferItems: 64, Metrics: true})
		if err != nil {
			return nil, nil, err
		}
		if err := rec.Register(p.Collectors()...); err != nil {
			_ = p.Close()
			return nil, nil, err
		}
		store := kv.New(p, nil)
		return store, func() { _ = store.Close() }, nil

	case "sturdyc":
		c, err := sturdyc.New(sturdyc.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		return c, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store %q", name)
}
