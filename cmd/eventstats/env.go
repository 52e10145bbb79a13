package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/repository"
	"FinEvent/internal/service/eventsheet"
	"FinEvent/internal/service/export"
	"FinEvent/internal/services/nonevent"
	"FinEvent/internal/services/probability"
	"FinEvent/internal/services/returns"
	"FinEvent/internal/services/sessions"
	"FinEvent/internal/services/tagger"
	"FinEvent/internal/services/timeseries"
	"FinEvent/internal/usecase"
	"FinEvent/pkg/cache"
	"FinEvent/pkg/config"
	"FinEvent/pkg/logger"
	"FinEvent/pkg/metrics"
	"FinEvent/pkg/util"
)

// env is one invocation's in-memory pipeline: the input files loaded into
// a memory store and the analysis use case on top of it.
type env struct {
	rf       *rootFlags
	cfg      *config.Config
	loc      *time.Location
	store    *repository.MemoryStore
	analysis *usecase.AnalysisUseCase
	events   []models.RawEvent
}

func newEnv(ctx context.Context, rf *rootFlags, needBars bool) (*env, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(rf.config)
	if err != nil {
		return nil, err
	}
	a := cfg.Analysis

	norm, err := timeseries.NewNormalizer(a.BarsTimezone, a.ReferenceTimezone)
	if err != nil {
		return nil, err
	}
	eventNorm, err := timeseries.NewNormalizer(a.EventsTimezone, a.ReferenceTimezone)
	if err != nil {
		return nil, err
	}
	loc := norm.Location()
	seg, err := sessions.New(loc, a.Sessions)
	if err != nil {
		return nil, err
	}
	mode, err := tagger.ParseMode(a.JoinMode)
	if err != nil {
		return nil, err
	}

	log := logger.NewNop()
	store := repository.NewMemoryStore()
	mem := cache.NewMemoryCache(cache.WithMemoryMaxEntries(cfg.Cache.MaxEntries))
	analysis := usecase.NewAnalysisUseCase(store, store, usecase.Engines{
		Normalizer:  norm,
		Segmenter:   seg,
		Filter:      nonevent.New(loc, a.Windows),
		Aggregator:  returns.New(a.Scale, loc),
		Probability: probability.New(a.Scale, a.Granularity),
	}, cfg.Keywords, mem, metrics.New(prometheus.NewRegistry()), log, usecase.AnalysisConfig{
		Mode:       mode,
		LatestDays: a.LatestDays,
		MaxHorizon: a.MaxHorizon,
		KeyPrefix:  "eventstats",
	})

	e := &env{rf: rf, cfg: cfg, loc: loc, store: store, analysis: analysis}
	if err := e.loadEvents(ctx, eventNorm); err != nil {
		return nil, err
	}
	if needBars {
		if err := e.loadBars(ctx, norm); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func (e *env) loadEvents(ctx context.Context, norm *timeseries.Normalizer) error {
	if e.rf.events == "" {
		return fmt.Errorf("%w: --events is required", models.ErrInvalidArgument)
	}
	if strings.EqualFold(filepath.Ext(e.rf.events), ".xlsx") {
		sheet, err := eventsheet.New(e.rf.events, norm.Source()).LoadEvents(ctx)
		if err != nil {
			return err
		}
		if _, err := e.analysis.UseSheetTiers(sheet.Tiers); err != nil {
			return err
		}
		e.events = norm.Events(sheet.Events)
	} else {
		f, err := os.Open(e.rf.events)
		if err != nil {
			return fmt.Errorf("open events: %w", err)
		}
		defer f.Close()
		events, err := export.ReadEvents(f, norm)
		if err != nil {
			return err
		}
		e.events = norm.Events(events)
	}
	return e.store.StoreEvents(ctx, e.events, "cli")
}

func (e *env) loadBars(ctx context.Context, norm *timeseries.Normalizer) error {
	if e.rf.bars == "" {
		return fmt.Errorf("%w: --bars is required", models.ErrInvalidArgument)
	}
	interval := models.Interval(e.rf.interval)
	if !interval.IsValid() {
		return fmt.Errorf("%w: interval %q", models.ErrInvalidArgument, e.rf.interval)
	}
	f, err := os.Open(e.rf.bars)
	if err != nil {
		return fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	bars, err := export.ReadBars(f, e.rf.symbol, interval, norm)
	if err != nil {
		return err
	}
	return e.store.StoreBars(ctx, norm.Bars(bars, interval))
}

func (e *env) seriesParams() (usecase.SeriesParams, error) {
	p := usecase.SeriesParams{
		Symbol:   e.rf.symbol,
		Interval: models.Interval(e.rf.interval),
		NonEvent: e.rf.nonEvent,
	}
	var ok bool
	if e.rf.from != "" {
		if p.From, _, ok = util.ParseTimeIn(e.rf.from, e.loc); !ok {
			return p, fmt.Errorf("%w: from %q", models.ErrInvalidArgument, e.rf.from)
		}
	}
	if e.rf.to != "" {
		if p.To, _, ok = util.ParseTimeIn(e.rf.to, e.loc); !ok {
			return p, fmt.Errorf("%w: to %q", models.ErrInvalidArgument, e.rf.to)
		}
	}
	return p, nil
}

func (e *env) reportParams(measure models.Measure, f reportFlags) (usecase.ReportParams, error) {
	sp, err := e.seriesParams()
	if err != nil {
		return usecase.ReportParams{}, err
	}
	p := usecase.ReportParams{SeriesParams: sp, Measure: measure, LatestDays: f.latest}
	if f.month != 0 {
		p.Filter = returns.DateFilter{Month: time.Month(f.month), DayFrom: f.dayFrom, DayTo: f.dayTo}
		return p, nil
	}
	if p.Filter.Start, err = parseDay(f.start); err != nil {
		return p, err
	}
	if p.Filter.End, err = parseDay(f.end); err != nil {
		return p, err
	}
	return p, nil
}

// export writes to --out when set.
func (e *env) export(write func(*os.File) error) error {
	if e.rf.out == "" {
		return nil
	}
	return writeFile(e.rf.out, write)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
