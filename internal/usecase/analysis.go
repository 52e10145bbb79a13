package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	domsvc "FinEvent/internal/domain/service"
	apimetrics "FinEvent/internal/service/metrics"
	"FinEvent/internal/services/classifier"
	"FinEvent/internal/services/nonevent"
	"FinEvent/internal/services/probability"
	"FinEvent/internal/services/returns"
	"FinEvent/internal/services/sessions"
	"FinEvent/internal/services/tagger"
	"FinEvent/internal/services/timeseries"
	"FinEvent/pkg/cache"
	"FinEvent/pkg/logger"
)

// eventPadding widens the event query around the bar range so whole-day
// and window exclusions at the edges see their events.
const eventPadding = 48 * time.Hour

type AnalysisConfig struct {
	Mode       tagger.Mode
	LatestDays int
	MaxHorizon int
	ReportTTL  time.Duration
	MatrixTTL  time.Duration
	KeyPrefix  string
}

// Engines groups the pure computation stages.
type Engines struct {
	Normalizer  *timeseries.Normalizer
	Segmenter   *sessions.Segmenter
	Filter      *nonevent.Filter
	Aggregator  *returns.Aggregator
	Probability *probability.Engine
}

// AnalysisUseCase loads stored bars and events, runs them through the event
// tagging pipeline and produces session reports and probability matrices.
type AnalysisUseCase struct {
	bars    domrepo.BarStore
	events  domrepo.EventStore
	tagged  domrepo.TaggedStore
	eng     Engines
	cache   cache.Service
	pub     domrepo.ReportPublisher
	metrics domrepo.Metrics
	log     *logger.Logger
	cfg     AnalysisConfig

	mu         sync.RWMutex
	keywords   classifier.Keywords
	classifier *classifier.Classifier
}

func NewAnalysisUseCase(
	bars domrepo.BarStore,
	events domrepo.EventStore,
	eng Engines,
	keywords classifier.Keywords,
	c cache.Service,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg AnalysisConfig,
) *AnalysisUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.MaxHorizon <= 0 {
		cfg.MaxHorizon = 24
	}
	return &AnalysisUseCase{
		bars:       bars,
		events:     events,
		eng:        eng,
		cache:      c,
		metrics:    metrics,
		log:        log.With(logger.String("usecase", "analysis")),
		cfg:        cfg,
		keywords:   keywords,
		classifier: classifier.New(keywords),
	}
}

// SetTaggedStore keeps every computed tagging for inspection.
func (uc *AnalysisUseCase) SetTaggedStore(s domrepo.TaggedStore) { uc.tagged = s }

// SetPublisher announces freshly computed reports.
func (uc *AnalysisUseCase) SetPublisher(p domrepo.ReportPublisher) { uc.pub = p }

// Keywords returns the active classification table.
func (uc *AnalysisUseCase) Keywords() classifier.Keywords {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.keywords
}

// UseSheetTiers adopts a workbook's tier table when no tier keywords are
// configured. It reports whether the table was adopted.
func (uc *AnalysisUseCase) UseSheetTiers(tiers []domsvc.TierKeyword) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if len(uc.keywords.Tiers) > 0 || len(tiers) == 0 {
		return false, nil
	}
	kw := classifier.Keywords{Flags: uc.keywords.Flags}
	for _, t := range tiers {
		kw.Tiers = append(kw.Tiers, classifier.TierKeyword{Keyword: t.Keyword, Tier: t.Tier})
	}
	if err := kw.Validate(); err != nil {
		return false, fmt.Errorf("%w: workbook tiers: %v", models.ErrInvalidArgument, err)
	}
	uc.keywords = kw
	uc.classifier = classifier.New(kw)
	return true, nil
}

func (uc *AnalysisUseCase) currentClassifier() *classifier.Classifier {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.classifier
}

// Classify runs the classifier over events. A non-nil kw replaces the
// configured table for this call only.
func (uc *AnalysisUseCase) Classify(events []models.RawEvent, kw *classifier.Keywords) (models.ClassifiedEvents, error) {
	c := uc.currentClassifier()
	if kw != nil {
		if err := kw.Validate(); err != nil {
			return models.ClassifiedEvents{}, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
		}
		c = classifier.New(*kw)
	}
	return c.Classify(uc.eng.Normalizer.Events(events)), nil
}

type SeriesParams struct {
	Symbol   string
	Interval models.Interval
	From     time.Time
	To       time.Time
	NonEvent bool
}

func (p SeriesParams) validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol required", models.ErrInvalidArgument)
	}
	if !p.Interval.IsValid() {
		return fmt.Errorf("%w: interval %q", models.ErrInvalidArgument, p.Interval)
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return fmt.Errorf("%w: from must be <= to", models.ErrInvalidArgument)
	}
	return nil
}

func (p SeriesParams) keyParts() []interface{} {
	return []interface{}{p.Symbol, p.Interval, p.NonEvent, unixOrZero(p.From), unixOrZero(p.To)}
}

// Series returns the tagged, session-assigned series. Exclusions are marked
// only for non-event requests.
func (uc *AnalysisUseCase) Series(ctx context.Context, p SeriesParams) (models.TaggedSeries, error) {
	if err := p.validate(); err != nil {
		return models.TaggedSeries{}, err
	}
	start := time.Now()

	raw, err := uc.bars.QueryBars(ctx, domrepo.BarQuery{Symbol: p.Symbol, Interval: p.Interval, From: p.From, To: p.To})
	if err != nil {
		uc.metrics.RecordError("query_bars")
		return models.TaggedSeries{}, fmt.Errorf("load bars %s %s: %w", p.Symbol, p.Interval, err)
	}
	bars := uc.eng.Normalizer.Bars(raw, p.Interval)

	var events []models.RawEvent
	if len(bars) > 0 {
		from := bars[0].Timestamp.Add(-eventPadding)
		to := bars[len(bars)-1].Timestamp.Add(eventPadding)
		events, err = uc.events.QueryEvents(ctx, from, to)
		if err != nil {
			uc.metrics.RecordError("query_events")
			return models.TaggedSeries{}, fmt.Errorf("load events: %w", err)
		}
	}
	classified := uc.currentClassifier().Classify(uc.eng.Normalizer.Events(events))

	series := tagger.Tag(bars, classified, uc.cfg.Mode)
	series = uc.eng.Segmenter.Assign(series, p.Interval)
	if p.NonEvent {
		series, err = uc.eng.Filter.Apply(series)
		if err != nil {
			return models.TaggedSeries{}, fmt.Errorf("filter %s: %w", p.Symbol, err)
		}
		uc.metrics.RecordExcluded(p.Symbol, series.Excluded(), len(series.Bars))
	}
	uc.metrics.RecordLatency("series", time.Since(start).Seconds())

	if uc.tagged != nil {
		if err := uc.tagged.StoreTagged(ctx, p.Symbol, p.Interval, series); err != nil {
			uc.log.Warn("store tagged series", logger.String("symbol", p.Symbol), logger.Error(err))
		}
	}
	return series, nil
}

func selectBars(series models.TaggedSeries, nonEvent bool) []models.TaggedBar {
	if nonEvent {
		return nonevent.NonEvents(series)
	}
	out := make([]models.TaggedBar, len(series.Bars))
	copy(out, series.Bars)
	return out
}

func plainBars(tagged []models.TaggedBar) []models.Bar {
	out := make([]models.Bar, len(tagged))
	for i, tb := range tagged {
		out[i] = tb.Bar
	}
	return out
}

type ReportParams struct {
	SeriesParams
	Measure    models.Measure
	Filter     returns.DateFilter
	LatestDays int
}

// SessionReport returns per-session return or volatility statistics. The
// bool reports a cache hit.
func (uc *AnalysisUseCase) SessionReport(ctx context.Context, p ReportParams) (models.SessionReport, bool, error) {
	if err := p.validate(); err != nil {
		return models.SessionReport{}, false, err
	}
	if err := p.Filter.Validate(); err != nil {
		return models.SessionReport{}, false, err
	}
	switch p.Measure {
	case "":
		p.Measure = models.MeasureReturn
	case models.MeasureReturn, models.MeasureVolatility:
	default:
		return models.SessionReport{}, false, fmt.Errorf("%w: measure %q", models.ErrInvalidArgument, p.Measure)
	}
	if p.LatestDays == 0 {
		p.LatestDays = uc.cfg.LatestDays
	}

	key := uc.reportKey(p)
	rep, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.ReportTTL, func(ctx context.Context) (models.SessionReport, error) {
		series, err := uc.Series(ctx, p.SeriesParams)
		if err != nil {
			return models.SessionReport{}, err
		}
		return uc.report(series, p), nil
	}, uc.cacheError)
	apimetrics.CacheLookup("sessions_"+string(p.Measure), hit)
	if err != nil {
		return models.SessionReport{}, false, err
	}
	if !hit {
		uc.publish(ctx, "session_"+string(p.Measure), key, rep)
	}
	return rep, hit, nil
}

func (uc *AnalysisUseCase) report(series models.TaggedSeries, p ReportParams) models.SessionReport {
	return uc.eng.Aggregator.Report(selectBars(series, p.NonEvent), returns.ReportOptions{
		Symbol:     p.Symbol,
		Interval:   p.Interval,
		Measure:    p.Measure,
		NonEvent:   p.NonEvent,
		LatestDays: p.LatestDays,
		Filter:     p.Filter,
		Sessions:   uc.eng.Segmenter.Sessions(),
	})
}

type MatrixParams struct {
	SeriesParams
	Hours   int
	Target  float64
	Version models.Version
}

// Matrix builds the probability matrix of one version. The bool reports a
// cache hit.
func (uc *AnalysisUseCase) Matrix(ctx context.Context, p MatrixParams) (models.ProbabilityResult, bool, error) {
	if err := p.validate(); err != nil {
		return models.ProbabilityResult{}, false, err
	}
	if p.Hours == 0 {
		p.Hours = uc.cfg.MaxHorizon
	}

	key := uc.matrixKey(p)
	res, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.MatrixTTL, func(ctx context.Context) (models.ProbabilityResult, error) {
		series, err := uc.Series(ctx, p.SeriesParams)
		if err != nil {
			return models.ProbabilityResult{}, err
		}
		return uc.matrix(series, p)
	}, uc.cacheError)
	apimetrics.CacheLookup("matrix", hit)
	if err != nil {
		return models.ProbabilityResult{}, false, err
	}
	if !hit {
		uc.publish(ctx, "matrix", key, res)
	}
	return res, hit, nil
}

func (uc *AnalysisUseCase) matrix(series models.TaggedSeries, p MatrixParams) (models.ProbabilityResult, error) {
	start := time.Now()
	res, err := uc.eng.Probability.Build(plainBars(selectBars(series, p.NonEvent)), p.Hours, p.Target, p.Version)
	if err != nil {
		return models.ProbabilityResult{}, err
	}
	res.Symbol = p.Symbol
	res.Interval = p.Interval
	uc.metrics.RecordLatency("matrix", time.Since(start).Seconds())
	return res, nil
}

// OverviewParams asks for returns, volatility and a matrix over one series.
type OverviewParams struct {
	SeriesParams
	Filter     returns.DateFilter
	LatestDays int
	Hours      int
	Target     float64
	Version    models.Version
}

type Overview struct {
	Returns    *models.SessionReport     `json:"returns,omitempty"`
	Volatility *models.SessionReport     `json:"volatility,omitempty"`
	Matrix     *models.ProbabilityResult `json:"matrix,omitempty"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// Overview loads the series once and computes the three views concurrently,
// each over its own copy of the bars. A failing view is reported in Errors.
func (uc *AnalysisUseCase) Overview(ctx context.Context, p OverviewParams) (*Overview, error) {
	if err := p.Filter.Validate(); err != nil {
		return nil, err
	}
	if p.LatestDays == 0 {
		p.LatestDays = uc.cfg.LatestDays
	}
	if p.Hours == 0 {
		p.Hours = uc.cfg.MaxHorizon
	}
	series, err := uc.Series(ctx, p.SeriesParams)
	if err != nil {
		return nil, err
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	for _, m := range []models.Measure{models.MeasureReturn, models.MeasureVolatility} {
		wg.Add(1)
		go func(m models.Measure) {
			defer wg.Done()
			rep := uc.report(cloneSeries(series), ReportParams{SeriesParams: p.SeriesParams, Measure: m, Filter: p.Filter, LatestDays: p.LatestDays})
			ch <- item{string(m), rep, nil}
		}(m)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := uc.matrix(cloneSeries(series), MatrixParams{SeriesParams: p.SeriesParams, Hours: p.Hours, Target: p.Target, Version: p.Version})
		ch <- item{"matrix", res, err}
	}()
	go func() { wg.Wait(); close(ch) }()

	out := &Overview{Errors: map[string]string{}}
	for it := range ch {
		if it.err != nil {
			out.Errors[it.name] = it.err.Error()
			continue
		}
		switch v := it.val.(type) {
		case models.SessionReport:
			if v.Measure == models.MeasureVolatility {
				out.Volatility = &v
			} else {
				out.Returns = &v
			}
		case models.ProbabilityResult:
			out.Matrix = &v
		}
	}
	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out, nil
}

// Invalidate drops cached reports and matrices of a symbol.
func (uc *AnalysisUseCase) Invalidate(ctx context.Context, symbol string) error {
	if uc.cache == nil {
		return nil
	}
	for _, kind := range []string{"report", "matrix"} {
		if err := uc.cache.DeleteByPrefix(ctx, cache.Key(uc.cfg.KeyPrefix, kind, symbol)+":"); err != nil {
			return fmt.Errorf("invalidate %s %s: %w", kind, symbol, err)
		}
	}
	return nil
}

func (uc *AnalysisUseCase) cacheError(op, key string, err error) {
	uc.metrics.RecordError("cache_" + op)
	uc.log.Warn("analysis cache", logger.String("op", op), logger.String("key", key), logger.Error(err))
}

// InvalidateAll drops every cached report and matrix. Calendar events are
// shared by all symbols.
func (uc *AnalysisUseCase) InvalidateAll(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	for _, kind := range []string{"report", "matrix"} {
		if err := uc.cache.DeleteByPrefix(ctx, cache.Key(uc.cfg.KeyPrefix, kind)+":"); err != nil {
			return fmt.Errorf("invalidate %s: %w", kind, err)
		}
	}
	return nil
}

func (uc *AnalysisUseCase) reportKey(p ReportParams) string {
	f := p.Filter
	parts := append([]interface{}{uc.cfg.KeyPrefix, "report"}, p.keyParts()...)
	parts = append(parts, p.Measure, p.LatestDays,
		cache.HashKey(fmt.Sprintf("%s|%s|%d|%d|%d", f.Start, f.End, f.Month, f.DayFrom, f.DayTo)),
		cache.HashKey(uc.keywordsFingerprint()))
	return cache.Key(parts...)
}

func (uc *AnalysisUseCase) matrixKey(p MatrixParams) string {
	parts := append([]interface{}{uc.cfg.KeyPrefix, "matrix"}, p.keyParts()...)
	parts = append(parts, p.Hours, p.Target, p.Version, cache.HashKey(uc.keywordsFingerprint()))
	return cache.Key(parts...)
}

// keywordsFingerprint changes whenever the active tier table changes, so
// reports computed under workbook tiers never mix with configured ones.
func (uc *AnalysisUseCase) keywordsFingerprint() string {
	kw := uc.Keywords()
	var b strings.Builder
	for _, t := range kw.Tiers {
		fmt.Fprintf(&b, "%s=%d;", t.Keyword, t.Tier)
	}
	return b.String()
}

func (uc *AnalysisUseCase) publish(ctx context.Context, kind, key string, report interface{}) {
	if uc.pub == nil {
		return
	}
	if err := uc.pub.PublishReport(ctx, kind, key, report); err != nil {
		uc.metrics.RecordError("publish_report")
		uc.log.Warn("publish report", logger.String("kind", kind), logger.Error(err))
	}
}

func cloneSeries(s models.TaggedSeries) models.TaggedSeries {
	bars := make([]models.TaggedBar, len(s.Bars))
	copy(bars, s.Bars)
	return models.TaggedSeries{Bars: bars, Events: s.Events}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
