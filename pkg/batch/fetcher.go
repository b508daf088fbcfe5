package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxChunkSize is the MediaWiki limit for multi-value parameters.
const MaxChunkSize = 50

// Config holds batch fetch configuration.
type Config struct {
	// ChunkSize is the number of ids per request (1..MaxChunkSize).
	ChunkSize int
	// MaxConcurrency is the maximum number of chunks fetched in parallel.
	MaxConcurrency int
	// Timeout per chunk fetch.
	Timeout time.Duration
}

// DefaultConfig returns the configuration for public Wikimedia APIs.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      MaxChunkSize,
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		c.ChunkSize = MaxChunkSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Chunks splits ids into consecutive slices of at most size elements.
func Chunks(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Fetch calls fn once per chunk of ids and merges the returned maps.
func Fetch[V any](ctx context.Context, cfg Config, ids []string, fn func(ctx context.Context, chunk []string) (map[string]V, error)) (map[string]V, error) {
	cfg = cfg.normalized()
	chunks := Chunks(ids, cfg.ChunkSize)
	merged := make(map[string]V, len(ids))

	switch len(chunks) {
	case 0:
		return merged, nil
	case 1:
		chunkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return fn(chunkCtx, chunks[0])
	}

	start := time.Now()
	results := make([]map[string]V, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			chunkCtx, cancel := context.WithTimeout(gctx, cfg.Timeout)
			defer cancel()

			res, err := fn(chunkCtx, chunk)
			if err != nil {
				log.Warn().
					Err(err).
					Int("chunk", i).
					Int("size", len(chunk)).
					Msg("Chunk fetch failed")
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		for k, v := range res {
			merged[k] = v
		}
	}

	log.Debug().
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return merged, nil
}
