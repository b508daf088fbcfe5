package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/commons-depicts/internal/config"
	"github.com/Sternrassler/commons-depicts/pkg/client"
	"github.com/Sternrassler/commons-depicts/pkg/commons"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/Sternrassler/commons-depicts/pkg/search"
	"github.com/Sternrassler/commons-depicts/pkg/wikidata"
	"github.com/redis/go-redis/v9"
)

// app is the wired service graph.
type app struct {
	cfg    *config.Config
	redis  *redis.Client
	search *search.Service
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging())
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.NewLogger("depicts")

	var rdb *redis.Client
	if opts := cfg.RedisOptions(); opts != nil {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	commonsAPI, err := client.New(cfg.ClientConfig(rdb, cfg.Commons.APIURL))
	if err != nil {
		return nil, fmt.Errorf("commons client: %w", err)
	}
	wikidataAPI, err := client.New(cfg.ClientConfig(rdb, cfg.Wikidata.APIURL))
	if err != nil {
		return nil, fmt.Errorf("wikidata client: %w", err)
	}

	dir := commons.New(commonsAPI, cfg.CommonsConfig())
	labels := wikidata.New(wikidataAPI, cfg.WikidataConfig())

	return &app{
		cfg:    cfg,
		redis:  rdb,
		search: search.New(dir, labels, cfg.SearchConfig()),
	}, nil
}

// health pings Redis when it is configured.
func (a *app) health(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}

func (a *app) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
