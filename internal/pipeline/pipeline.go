package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/analyze"
	"github.com/raolivei/swimTO-sub000/internal/classify"
	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/expand"
	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/internal/match"
	"github.com/raolivei/swimTO-sub000/internal/quality"
	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/internal/resolve"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// ErrEmptyResult is the zero-output safeguard: a run that produced no
// sessions refuses to replace a previously non-empty store, so a single
// broken source can never silently wipe good data.
var ErrEmptyResult = errors.New("pipeline produced zero sessions while prior store is non-empty; refusing to replace")

// ErrAllSourcesFailed means no source yielded any input for the run
var ErrAllSourcesFailed = errors.New("all sources failed")

// SessionStore is the canonical output store the pipeline replaces on a
// successful run.
type SessionStore interface {
	AcquireRunLock(ctx context.Context) (release func(), err error)
	Count(ctx context.Context) (int, error)
	Replace(ctx context.Context, sessions []contracts.Session) error
}

// Config holds the pipeline tunables
type Config struct {
	HorizonWeeks   int
	MatchThreshold float64
	Workers        int
	MinFacilities  int
	PeakWindows    int
}

// Pipeline sequences ingestion, classification, matching, expansion,
// conflict resolution and analysis into one batch run.
type Pipeline struct {
	logger     *logger.Logger
	cfg        Config
	sources    []ingest.Source
	registry   registry.Provider
	store      SessionStore
	classifier *classify.Classifier
	expander   *expand.Expander
	resolver   *resolve.Resolver
	analyzer   *analyze.Analyzer
	validator  *quality.Validator
	dryRun     bool
}

// New wires a Pipeline from its collaborators
func New(log *logger.Logger, cfg Config, sources []ingest.Source, reg registry.Provider, store SessionStore) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 5
	}
	if cfg.HorizonWeeks < 1 {
		cfg.HorizonWeeks = 4
	}

	return &Pipeline{
		logger:     log.WithField("component", "pipeline"),
		cfg:        cfg,
		sources:    sources,
		registry:   reg,
		store:      store,
		classifier: classify.New(),
		expander:   expand.New(log, cfg.HorizonWeeks),
		resolver:   resolve.New(log),
		analyzer:   analyze.New(cfg.MinFacilities, cfg.PeakWindows),
		validator:  quality.New(cfg.HorizonWeeks),
	}
}

// WithClock fixes the notion of today for expansion and validation.
// Used in tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.expander.WithClock(now)
	p.validator.WithClock(now)
	return p
}

// WithDryRun makes Run leave the session store untouched while still
// executing every other stage and reporting the full summary.
func (p *Pipeline) WithDryRun(dryRun bool) *Pipeline {
	p.dryRun = dryRun
	return p
}

// Run executes one full reconciliation pass. The run lock is held for
// the whole run; per-source failures are absorbed, only systemic
// failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	started := time.Now()

	release, err := p.store.AcquireRunLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	summary := &RunSummary{StartedAt: started}

	snapshot, err := p.registry.Facilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry snapshot: %w", err)
	}
	matcher := match.New(p.logger, snapshot, p.cfg.MatchThreshold)

	records := p.fetchAll(ctx, summary)
	if summary.SourcesAttempted > 0 && len(summary.SourcesFailed) == summary.SourcesAttempted {
		return summary, ErrAllSourcesFailed
	}
	summary.RecordsFetched = len(records)

	inputs := p.classifyAndMatch(ctx, matcher, records, summary)

	sessions, quarantine := p.expander.Expand(inputs)
	summary.QuarantineCount = len(quarantine)
	summary.Quarantine = quarantine

	resolved, conflicts := p.resolver.Resolve(sessions)
	summary.ConflictGroups = len(conflicts)

	contracts.SortSessions(resolved)
	summary.SessionsProduced = len(resolved)

	summary.Analysis = p.analyzer.Analyze(resolved)
	summary.Quality = p.validator.Validate(resolved)

	priorCount, err := p.store.Count(ctx)
	if err != nil {
		return summary, fmt.Errorf("count prior sessions: %w", err)
	}

	if len(resolved) == 0 && priorCount > 0 {
		p.logger.WithField("prior_count", priorCount).Error("Empty result safeguard triggered")
		return summary, ErrEmptyResult
	}

	if p.dryRun {
		summary.Duration = time.Since(started)
		p.logger.Info("Dry run, session store left untouched")
		p.logSummary(summary)
		return summary, nil
	}

	if err := p.store.Replace(ctx, resolved); err != nil {
		return summary, fmt.Errorf("replace session store: %w", err)
	}

	summary.Duration = time.Since(started)
	p.logSummary(summary)
	return summary, nil
}

// fetchAll runs every source concurrently and collects the outputs.
// Record order is fixed by source declaration order, not completion
// order, to keep runs deterministic.
func (p *Pipeline) fetchAll(ctx context.Context, summary *RunSummary) []contracts.RawRecord {
	summary.SourcesAttempted = len(p.sources)

	type result struct {
		records []contracts.RawRecord
		err     error
	}
	results := make([]result, len(p.sources))

	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src ingest.Source) {
			defer wg.Done()
			records, err := src.Fetch(ctx)
			if err != nil {
				results[i] = result{err: &ingest.FetchError{Source: src.Name(), Err: err}}
				return
			}
			results[i] = result{records: records}
		}(i, src)
	}
	wg.Wait()

	var records []contracts.RawRecord
	for i, res := range results {
		if res.err != nil {
			p.logger.WithError(res.err).WithField("source", p.sources[i].Name()).
				Warn("Source failed, skipping for this run")
			summary.SourcesFailed = append(summary.SourcesFailed, p.sources[i].Name())
			continue
		}
		p.logger.WithFields(map[string]interface{}{
			"source":  p.sources[i].Name(),
			"records": len(res.records),
		}).Info("Source fetched")
		records = append(records, res.records...)
	}
	return records
}

// classifyAndMatch fans records over a worker pool. Classification and
// matching have no cross-record dependencies; results land in an
// index-addressed slice so output order matches input order.
func (p *Pipeline) classifyAndMatch(ctx context.Context, matcher *match.Matcher, records []contracts.RawRecord, summary *RunSummary) []expand.Input {
	inputs := make([]expand.Input, len(records))

	indexes := make(chan int, len(records))
	for i := range records {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	var mu sync.Mutex
	lowConfidence := 0

	workers := p.cfg.Workers
	if workers > len(records) {
		workers = len(records)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if ctx.Err() != nil {
					return
				}
				record := records[i]
				classification := p.classifier.Classify(record)
				inputs[i] = expand.Input{
					Record:         record,
					Classification: classification,
					Match:          matcher.Match(record),
				}
				if classification.HasTag(classify.TagLowConfidenceDefault) {
					mu.Lock()
					lowConfidence++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	summary.LowConfidenceCount = lowConfidence
	return inputs
}

func (p *Pipeline) logSummary(summary *RunSummary) {
	p.logger.WithFields(map[string]interface{}{
		"sources_attempted": summary.SourcesAttempted,
		"sources_failed":    len(summary.SourcesFailed),
		"records_fetched":   summary.RecordsFetched,
		"sessions":          summary.SessionsProduced,
		"quarantined":       summary.QuarantineCount,
		"low_confidence":    summary.LowConfidenceCount,
		"conflict_groups":   summary.ConflictGroups,
		"quality_score":     summary.Quality.QualityScore,
		"duration":          summary.Duration.String(),
	}).Info("Pipeline run complete")
}
