package ops

import (
	"crypto/rand"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/docuverse/internal/ai"
	"github.com/hpungsan/docuverse/internal/cas"
	"github.com/hpungsan/docuverse/internal/config"
	"github.com/hpungsan/docuverse/internal/content"
	"github.com/hpungsan/docuverse/internal/engine"
	"github.com/hpungsan/docuverse/internal/feed"
	"github.com/hpungsan/docuverse/internal/fetch"
	"github.com/hpungsan/docuverse/internal/metrics"
	"github.com/hpungsan/docuverse/internal/render"
	"github.com/hpungsan/docuverse/internal/site"
)

// Limits
const (
	DefaultHistoryLimit  = 20
	MaxHistoryLimit      = 100
	DefaultChildrenLimit = 100
	MaxChildrenLimit     = 1000
	httpTimeout          = 60 * time.Second
)

// Deps bundles what every operation runs against.
type Deps struct {
	DB       *sql.DB
	Store    *cas.Store
	Client   *fetch.Client
	Config   *config.Config
	Logger   *slog.Logger
	Recorder metrics.Recorder

	// completer is nil when no AI generator is configured.
	completer content.Completer
}

// NewDeps wires the engine, the fetch client and the store over sqlDB.
// gen may be nil, in which case AI-backed nodes expand to nothing.
func NewDeps(cfg *config.Config, sqlDB *sql.DB, gen ai.Generator, logger *slog.Logger, rec metrics.Recorder) *Deps {
	if logger == nil {
		logger = slog.Default()
	}
	rec = metrics.OrNoop(rec)

	eng := engine.New(sqlDB, engine.WithRecorder(rec), engine.WithLogger(logger))
	client := fetch.NewClient(&fetch.Env{
		Engine:    eng,
		HTTP:      &http.Client{Timeout: httpTimeout},
		Token:     cfg.FeedToken,
		Generator: gen,
		JitterMin: time.Duration(cfg.JitterMinMS) * time.Millisecond,
		JitterMax: time.Duration(cfg.JitterMaxMS) * time.Millisecond,
		Logger:    logger,
	})

	d := &Deps{
		DB:       sqlDB,
		Store:    cas.New(sqlDB),
		Client:   client,
		Config:   cfg,
		Logger:   logger,
		Recorder: rec,
	}
	if gen != nil {
		d.completer = client
	}
	return d
}

// NewGenerator returns the Gemini generator for cfg, or nil without an API key.
func NewGenerator(cfg *config.Config) ai.Generator {
	if cfg.GeminiAPIKey == "" {
		return nil
	}
	return ai.NewGemini(cfg.AIBaseURL, cfg.AIModel, cfg.GeminiAPIKey)
}

// Env returns the content environment nodes are built against.
func (d *Deps) Env() *content.Env {
	return &content.Env{Completer: d.completer, Logger: d.Logger}
}

// Materializer returns a site materializer writing into the store.
func (d *Deps) Materializer() *site.Materializer {
	naming := site.NamingContent
	if d.Config.PageNaming == config.PageNamingTitle {
		naming = site.NamingTitle
	}
	return &site.Materializer{
		Store:       d.Store,
		Delegate:    &render.Generator{Completer: d.completer},
		Naming:      naming,
		MaxParallel: d.Config.MaxParallel,
		Logger:      d.Logger,
		Recorder:    d.Recorder,
	}
}

// FeedOptions returns the node options for feed roots.
func (d *Deps) FeedOptions() feed.Options {
	return feed.Options{
		Prompt:      d.Config.ElaborationPrompt,
		MaxParallel: d.Config.MaxParallel,
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRunID generates a new ULID for a publish run. IDs from one process sort
// in creation order even within a millisecond.
func newRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
