package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/internal/config"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/pgsource"
)

// Pool limits for a single command line session.
const (
	maxOpenConnections = 4
	maxIdleConnections = 1
	maxConnLifetime    = time.Hour
	maxConnIdleTime    = time.Minute * 5
	connectTimeout     = time.Second * 5
)

func openPostgresSource(ctx context.Context, src config.SourceConfig, logger timeline.Logger) (timeline.Source, func(), error) {
	options := pgsourceOptions(src, logger)

	switch src.EffectiveDriver() {
	case config.DriverPGX:
		pool, err := newPGXPool(ctx, src.DSN)
		if err != nil {
			return nil, nil, err
		}

		source, err := pgsource.NewFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return source, pool.Close, nil

	case config.DriverSQL:
		db, err := newSQLDB(ctx, src.DSN)
		if err != nil {
			return nil, nil, err
		}

		source, err := pgsource.NewFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return source, func() { _ = db.Close() }, nil

	case config.DriverSQLX:
		db, err := newSQLXDB(ctx, src.DSN)
		if err != nil {
			return nil, nil, err
		}

		source, err := pgsource.NewFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return source, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported postgres driver: %s", src.Driver)
	}
}

func newPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	poolConfig.MaxConns = maxOpenConnections
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return pool, nil
}

func newSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	configurePool(db)

	if err := pingWithTimeout(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return db, nil
}

func newSQLXDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	configurePool(db.DB)

	if err := pingWithTimeout(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return db, nil
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	db.SetConnMaxIdleTime(maxConnIdleTime)
}

func pingWithTimeout(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	return ping(ctx)
}
