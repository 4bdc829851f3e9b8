package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/linkharvest/internal/config"
	"github.com/nao1215/linkharvest/internal/database"
	"github.com/nao1215/linkharvest/internal/linkstore"
	"github.com/nao1215/linkharvest/internal/proxy"
)

// stores bundles the link store and the history database of a command.
type stores struct {
	links   linkstore.Store
	history *database.CrawlDB
	closers []func() error
}

// Close releases every backend.
func (s *stores) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openStores opens the crawl history database and the link store selected
// by cfg.Store. The sqlite link store shares the history database.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &stores{history: db, closers: []func() error{db.Close}}
	logger.Debug("database opened", "path", db.Path())

	switch cfg.Store {
	case config.StoreSQLite:
		s.links = db
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := linkstore.NewRedisStore(client, linkstore.WithKeyPrefix(cfg.RedisPrefix))
		s.closers = append(s.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			_ = s.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		s.links = rs
		logger.Debug("redis link store connected", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
	default:
		fs := linkstore.NewFileStore(cfg.StoreFile)
		s.links = fs
		logger.Debug("json link store", "path", fs.Path())
	}

	return s, nil
}

// newHTTPClient returns the HTTP client used for fetching. Without a proxy
// it returns nil, which makes the fetcher use http.DefaultClient.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, error) {
	if cfg.Proxy == "" {
		return nil, nil //nolint:nilnil // nil client selects the default
	}

	client, err := proxy.NewClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if status := client.Check(ctx); status != proxy.StatusOK {
		return nil, fmt.Errorf("proxy %s: %w", cfg.Proxy, status.Err())
	}
	logger.Debug("using SOCKS5 proxy", "addr", client.Address())

	return client.NewHTTPClient(), nil
}
