package usecase

import (
	"context"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	domsvc "FinEvent/internal/domain/service"
	"FinEvent/internal/services/timeseries"
	"FinEvent/pkg/logger"
)

// EventsUseCase imports the economic calendar into the event store.
type EventsUseCase struct {
	store    domrepo.EventStore
	norm     *timeseries.Normalizer
	analysis *AnalysisUseCase
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewEventsUseCase(store domrepo.EventStore, norm *timeseries.Normalizer, analysis *AnalysisUseCase, metrics domrepo.Metrics, log *logger.Logger) *EventsUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventsUseCase{store: store, norm: norm, analysis: analysis, metrics: metrics, log: log}
}

type ImportResult struct {
	Source      string `json:"source"`
	Events      int    `json:"events"`
	SheetTiers  int    `json:"sheet_tiers"`
	TiersLoaded bool   `json:"tiers_loaded"`
}

// ImportSource loads a calendar source and stores its events. A tier table
// found in the source replaces an empty configured one.
func (uc *EventsUseCase) ImportSource(ctx context.Context, src domsvc.EventSource, name string) (ImportResult, error) {
	sheet, err := src.LoadEvents(ctx)
	if err != nil {
		uc.metrics.RecordError("load_events")
		return ImportResult{}, fmt.Errorf("load events from %s: %w", name, err)
	}
	n, err := uc.Store(ctx, sheet.Events, name)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Source: name, Events: n, SheetTiers: len(sheet.Tiers)}
	if uc.analysis != nil {
		res.TiersLoaded, err = uc.analysis.UseSheetTiers(sheet.Tiers)
		if err != nil {
			return res, err
		}
	}
	uc.log.Info("events imported",
		logger.String("source", name),
		logger.Int("events", n),
		logger.Bool("sheet_tiers", res.TiersLoaded))
	return res, nil
}

// Store normalizes and saves events, then drops cached reports and matrices
// so exclusions follow the new calendar. It returns how many were kept.
func (uc *EventsUseCase) Store(ctx context.Context, events []models.RawEvent, source string) (int, error) {
	start := time.Now()
	events = uc.norm.Events(events)
	if len(events) == 0 {
		return 0, nil
	}
	if err := uc.store.StoreEvents(ctx, events, source); err != nil {
		uc.metrics.RecordError("store_events")
		return 0, fmt.Errorf("store %d events: %w", len(events), err)
	}
	uc.metrics.RecordEventsIngested(source, len(events))
	uc.metrics.RecordLatency("store_events", time.Since(start).Seconds())
	if uc.analysis != nil {
		if err := uc.analysis.InvalidateAll(ctx); err != nil {
			uc.metrics.RecordError("invalidate_cache")
			uc.log.Warn("drop cached analysis after event import",
				logger.String("source", source), logger.Error(err))
		}
	}
	return len(events), nil
}
