// Package ingest runs a full GalNet build: it walks the listing, scrapes
// every article, and writes one row per article into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pevans/galnetdb/config"
	"github.com/pevans/galnetdb/epoch"
	"github.com/pevans/galnetdb/galnet"
	"github.com/pevans/galnetdb/store"
)

// State names a step of a run.
type State string

// States of a run, in the order they are entered.
const (
	StateConnecting    State = "connecting"
	StateSchemaSetup   State = "schema setup"
	StateScraping      State = "scraping"
	StateTranslate     State = "translate"
	StateExtract       State = "extract"
	StateInsert        State = "insert"
	StateClosing       State = "closing"
	StatePersistConfig State = "persist config"
	StateDone          State = "done"
)

// PipelineConfig holds the non-database settings of a run.
type PipelineConfig struct {
	// BaseURL is the site hosting the feed.
	BaseURL string
	// FetchTimeout bounds each page request.
	FetchTimeout time.Duration
	// SettingsPath receives the run config after a successful run. Empty
	// skips persistence.
	SettingsPath string
	// Clock supplies the ingestion date; defaults to time.Now.
	Clock func() time.Time
}

// DefaultPipelineConfig returns the settings used by the build command.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		BaseURL:      galnet.DefaultBaseURL,
		FetchTimeout: galnet.DefaultFetchTimeout,
		SettingsPath: config.DefaultSettingsPath,
		Clock:        time.Now,
	}
}

// Result summarizes a run. On failure it reports how far the run got.
type Result struct {
	RunID     uuid.UUID
	DateAdded epoch.Date
	State     State
	Links     int
	Inserted  int
	Skipped   int
}

// Pipeline drives one build. Work is strictly sequential: one page request
// or one statement is outstanding at any time.
type Pipeline struct {
	run     *config.RunConfig
	config  *PipelineConfig
	fetcher galnet.Fetcher
	logger  *zap.Logger
}

// NewPipeline creates a pipeline for run. A nil fetcher selects an
// HTTPFetcher using the configured timeout.
func NewPipeline(
	run *config.RunConfig,
	fetcher galnet.Fetcher,
	pipelineConfig *PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if pipelineConfig == nil {
		pipelineConfig = DefaultPipelineConfig()
	}
	if pipelineConfig.Clock == nil {
		pipelineConfig.Clock = time.Now
	}
	if fetcher == nil {
		fetcher = galnet.NewHTTPFetcher(pipelineConfig.FetchTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		run:     run,
		config:  pipelineConfig,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run performs the build. The first failure aborts the run; rows inserted
// before it stay in the table. The returned Result is never nil.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.New(),
		DateAdded: epoch.DateOf(p.config.Clock().UTC()),
		State:     StateConnecting,
	}
	logger := p.logger.With(zap.String("run_id", result.RunID.String()))

	client, err := galnet.NewClient(p.config.BaseURL, p.fetcher, logger)
	if err != nil {
		return result, fmt.Errorf("%s: %w", result.State, err)
	}

	logger.Info("Connecting to store",
		zap.String("driver", p.run.StoreOptions().Driver),
		zap.String("host", p.run.Host),
		zap.String("database", p.run.Database),
	)
	st, err := store.Open(ctx, p.run.StoreOptions())
	if err != nil {
		return result, fmt.Errorf("%s: %w", result.State, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = st.Close()
		}
	}()

	if p.run.CreateTable {
		result.State = StateSchemaSetup
		if err := st.CreateTable(ctx); err != nil {
			return result, fmt.Errorf("%s: %w", result.State, err)
		}
		logger.Info("Created table", zap.String("table", st.Table()))
	}

	result.State = StateScraping
	links, err := client.ListLinks(ctx, client.IndexURL())
	if err != nil {
		return result, fmt.Errorf("%s: %w", result.State, err)
	}
	result.Links = len(links)

	translator := epoch.Translator{Offset: p.run.YearOffset}
	for _, link := range links {
		if err := p.ingestLink(ctx, client, st, translator, link, result, logger); err != nil {
			return result, fmt.Errorf("%s %s: %w", result.State, link.Href, err)
		}
	}

	result.State = StateClosing
	closed = true
	if err := st.Close(); err != nil {
		return result, fmt.Errorf("%s: %w", result.State, &store.StoreError{Op: "close", Err: err})
	}

	if p.config.SettingsPath != "" {
		result.State = StatePersistConfig
		if err := config.SaveRunConfig(p.config.SettingsPath, p.run); err != nil {
			return result, fmt.Errorf("%s: %w", result.State, err)
		}
	}

	result.State = StateDone
	logger.Info("Build complete",
		zap.Int("links", result.Links),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Stringer("date_added", result.DateAdded),
	)

	return result, nil
}

// ingestLink translates the date of one listing link, then fetches and
// inserts its articles one at a time.
func (p *Pipeline) ingestLink(
	ctx context.Context,
	client *galnet.Client,
	st *store.Store,
	translator epoch.Translator,
	link galnet.ListingLink,
	result *Result,
	logger *zap.Logger,
) error {
	result.State = StateTranslate
	released, err := translator.Translate(link.DateToken())
	if err != nil {
		return err
	}

	result.State = StateExtract
	articleURL, err := client.ArticleURL(link)
	if err != nil {
		return err
	}

	return client.EachEntry(ctx, articleURL, func(entry galnet.Entry) error {
		result.State = StateInsert
		id, err := st.Insert(ctx, store.Article{
			Title:        entry.Title,
			UID:          entry.UID,
			DateReleased: released,
			DateAdded:    result.DateAdded,
			Text:         entry.Text,
		})

		var dupErr *store.DuplicateError
		if errors.As(err, &dupErr) {
			result.Skipped++
			result.State = StateExtract
			logger.Info("Skipped stored article", zap.String("uid", entry.UID))
			return nil
		}
		if err != nil {
			return err
		}

		result.Inserted++
		result.State = StateExtract
		logger.Info("Inserted article",
			zap.Int64("id", id),
			zap.String("uid", entry.UID),
			zap.String("title", entry.Title),
			zap.Stringer("date_released", released),
		)
		return nil
	})
}
