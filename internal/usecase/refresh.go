package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	domsvc "FinEvent/internal/domain/service"
	"FinEvent/pkg/cache"
	"FinEvent/pkg/logger"
	"FinEvent/pkg/queue"
)

// JobRefreshBars is the queue message type of a bar refresh.
const JobRefreshBars = "refresh.bars"

// Instrument pairs the provider ticker with the stored symbol code.
type Instrument struct {
	Ticker string `json:"ticker"`
	Code   string `json:"code"`
}

type RefreshRequest struct {
	Instrument
	Interval models.Interval `json:"interval"`
	Range    string          `json:"range,omitempty"`
}

// RefreshUseCase pulls recent bars from the provider and merges them into
// stored history. Overlapping bars replace stored ones.
type RefreshUseCase struct {
	source   domsvc.RangeBarSource
	store    domrepo.BarStore
	proc     *BarProcessor
	analysis *AnalysisUseCase
	locks    cache.Service
	log      *logger.Logger

	defaultRange string
	lockTTL      time.Duration
	lockPrefix   string
}

func NewRefreshUseCase(
	source domsvc.RangeBarSource,
	store domrepo.BarStore,
	proc *BarProcessor,
	analysis *AnalysisUseCase,
	locks cache.Service,
	log *logger.Logger,
	defaultRange, lockPrefix string,
) *RefreshUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	if defaultRange == "" {
		defaultRange = "5d"
	}
	return &RefreshUseCase{
		source:       source,
		store:        store,
		proc:         proc,
		analysis:     analysis,
		locks:        locks,
		log:          log.With(logger.String("usecase", "refresh")),
		defaultRange: defaultRange,
		lockTTL:      5 * time.Minute,
		lockPrefix:   lockPrefix,
	}
}

// Refresh fetches bars newer than the last stored one, or the default range
// when nothing is stored. It returns the number of bars processed. A refresh
// already running for the same symbol and interval is skipped.
func (uc *RefreshUseCase) Refresh(ctx context.Context, req RefreshRequest) (int, error) {
	if req.Ticker == "" || req.Code == "" {
		return 0, fmt.Errorf("%w: ticker and code required", models.ErrInvalidArgument)
	}
	if !req.Interval.IsValid() {
		return 0, fmt.Errorf("%w: interval %q", models.ErrInvalidArgument, req.Interval)
	}

	if uc.locks != nil {
		key := cache.Key(uc.lockPrefix, "lock", req.Code, req.Interval)
		ok, err := uc.locks.TryLock(ctx, key, uc.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("refresh lock: %w", err)
		}
		if !ok {
			uc.log.Debug("refresh already running", logger.String("symbol", req.Code))
			return 0, nil
		}
		defer func() { _ = uc.locks.Unlock(context.WithoutCancel(ctx), key) }()
	}

	bars, err := uc.fetch(ctx, req)
	if err != nil {
		return 0, err
	}
	for i := range bars {
		bars[i].Symbol = req.Code
		bars[i].Interval = req.Interval
	}
	if err := uc.proc.Process(ctx, "yahoo", req.Interval, bars); err != nil {
		return 0, err
	}
	if uc.analysis != nil {
		if err := uc.analysis.Invalidate(ctx, req.Code); err != nil {
			uc.log.Warn("invalidate cached reports", logger.String("symbol", req.Code), logger.Error(err))
		}
	}
	uc.log.Info("bars refreshed",
		logger.String("symbol", req.Code),
		logger.String("interval", string(req.Interval)),
		logger.Int("bars", len(bars)))
	return len(bars), nil
}

func (uc *RefreshUseCase) fetch(ctx context.Context, req RefreshRequest) ([]models.Bar, error) {
	latest, err := uc.store.LatestBarTime(ctx, req.Code, req.Interval)
	if err != nil {
		return nil, fmt.Errorf("latest bar %s: %w", req.Code, err)
	}
	if latest.IsZero() || req.Range != "" {
		rng := req.Range
		if rng == "" {
			rng = uc.defaultRange
		}
		bars, err := uc.source.FetchRange(ctx, req.Ticker, req.Interval, rng)
		if err != nil {
			return nil, fmt.Errorf("fetch %s range %s: %w", req.Ticker, rng, err)
		}
		return bars, nil
	}
	// Refetch the last two bars so a bar still forming at the last run is
	// replaced by its final version.
	from := latest.Add(-2 * req.Interval.Duration())
	bars, err := uc.source.FetchBars(ctx, req.Ticker, req.Interval, from, time.Now())
	if err != nil {
		return nil, fmt.Errorf("fetch %s since %s: %w", req.Ticker, from.Format(time.RFC3339), err)
	}
	return bars, nil
}

// Job adapts Refresh to the job queue.
func (uc *RefreshUseCase) Job() queue.Job {
	return queue.JobFunc{
		JobName: "refresh bars",
		JobType: JobRefreshBars,
		Fn: func(ctx context.Context, payload json.RawMessage) error {
			req, err := queue.Decode[RefreshRequest](payload)
			if err != nil {
				return err
			}
			_, err = uc.Refresh(ctx, req)
			return err
		},
	}
}
