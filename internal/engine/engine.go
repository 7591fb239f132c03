// Package engine memoizes keyed external computations.
//
// A Key describes one request (fetch a URL, complete a prompt). Its result is
// cached under sha256(key type, version, JSON fields): in memory for the life
// of the Engine and in the action_cache table across runs. Identical requests
// issued concurrently share a single Compute. Failed computations are never
// cached.
package engine

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/docuverse/internal/db"
	"github.com/hpungsan/docuverse/internal/errors"
	"github.com/hpungsan/docuverse/internal/metrics"
)

// Key is a serializable request descriptor. Exported fields form the cache
// identity; ambient dependencies must be excluded with `json:"-"`.
type Key[V any] interface {
	KeyType() string
	Version() int
	Compute(ctx context.Context) (V, error)
}

// Engine serves Key results from cache or computes them once.
type Engine struct {
	db       *sql.DB
	recorder metrics.Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	memory   map[string][]byte
	inflight map[string]*call
}

type call struct {
	done  chan struct{}
	value []byte
	err   error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports cache hits, misses and compute durations.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Engine persisting results in sqlDB. A nil sqlDB keeps
// results in memory only.
func New(sqlDB *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       sqlDB,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		memory:   map[string][]byte{},
		inflight: map[string]*call{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CacheID returns the cache identity of a key and its serialized fields.
func CacheID(keyType string, version int, key any) (id string, fields string, err error) {
	data, err := json.Marshal(key)
	if err != nil {
		return "", "", errors.NewInternal(fmt.Errorf("serialize %s key: %w", keyType, err))
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00", keyType, version)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), string(data), nil
}

// Build returns the cached result for key, computing it at most once.
func Build[V any](ctx context.Context, e *Engine, key Key[V]) (V, error) {
	var zero V

	keyType := key.KeyType()
	id, fields, err := CacheID(keyType, key.Version(), key)
	if err != nil {
		return zero, err
	}

	raw, err := e.lookup(ctx, id, keyType, key.Version(), fields, func(ctx context.Context) ([]byte, error) {
		v, err := key.Compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("serialize %s result: %w", keyType, err))
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, errors.NewDecodeFailed(keyType+" result", err)
	}
	return v, nil
}

func (e *Engine) lookup(ctx context.Context, id, keyType string, version int, fields string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	for {
		e.mu.Lock()
		if raw, ok := e.memory[id]; ok {
			e.mu.Unlock()
			e.recorder.IncCacheResult(keyType, metrics.CacheHitMemory)
			return raw, nil
		}
		if c, ok := e.inflight[id]; ok {
			e.mu.Unlock()
			select {
			case <-c.done:
				// The leader's own cancellation says nothing about this
				// caller; retry and lead the next compute.
				if isContextErr(c.err) && ctx.Err() == nil {
					continue
				}
				return c.value, c.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		c := &call{done: make(chan struct{})}
		e.inflight[id] = c
		e.mu.Unlock()

		c.value, c.err = e.resolve(ctx, id, keyType, version, fields, compute)

		e.mu.Lock()
		if c.err == nil {
			e.memory[id] = c.value
		}
		delete(e.inflight, id)
		e.mu.Unlock()
		close(c.done)

		return c.value, c.err
	}
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) resolve(ctx context.Context, id, keyType string, version int, fields string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if e.db != nil {
		raw, ok, err := db.GetAction(ctx, e.db, id)
		if err != nil {
			return nil, err
		}
		if ok {
			e.recorder.IncCacheResult(keyType, metrics.CacheHitStore)
			return raw, nil
		}
	}
	e.recorder.IncCacheResult(keyType, metrics.CacheMiss)

	start := time.Now()
	raw, err := compute(ctx)
	e.recorder.ObserveComputeDuration(keyType, time.Since(start), err == nil)
	if err != nil {
		e.logger.Debug("fetch key failed", "key_type", keyType, "error", err)
		return nil, err
	}

	if e.db != nil {
		entry := db.ActionEntry{ID: id, KeyType: keyType, Version: version, KeyJSON: fields, Value: raw}
		if err := db.PutAction(ctx, e.db, entry); err != nil {
			// The result is still good for this run
			e.logger.Warn("failed to persist fetch key result", "key_type", keyType, "error", err)
		}
	}
	return raw, nil
}
