// Package nonevent marks bars that sit too close to scheduled economic
// events to count as baseline market behaviour.
package nonevent

import (
	"sort"
	"time"

	"FinEvent/internal/domain/models"
)

// Windows are the half-widths of the exclusion window around each event kind.
type Windows struct {
	Tier2 time.Duration `yaml:"tier2" json:"tier2" default:"30m"`
	Tier3 time.Duration `yaml:"tier3" json:"tier3" default:"15m"`
	Fed   time.Duration `yaml:"fed" json:"fed" default:"30m"`
}

func DefaultWindows() Windows {
	return Windows{Tier2: 30 * time.Minute, Tier3: 15 * time.Minute, Fed: 30 * time.Minute}
}

var requiredFlags = []string{models.FlagTier1, models.FlagTier2, models.FlagTier3, models.FlagFed}

// Filter computes the exclusion mark of a tagged series.
type Filter struct {
	loc     *time.Location
	windows Windows
}

// New returns a filter that resolves calendar days in loc.
func New(loc *time.Location, w Windows) *Filter {
	if loc == nil {
		loc = time.UTC
	}
	return &Filter{loc: loc, windows: w}
}

// Apply returns a copy of series with Exclude set on every bar that shares a
// calendar day with a Tier1 event, or lies within the Tier2, Tier3 or Fed
// window of an event (bounds inclusive). Every event of the series is an
// anchor, whether it landed on a bar or fell between bars.
func (f *Filter) Apply(series models.TaggedSeries) (models.TaggedSeries, error) {
	if err := checkColumns(series.Events); err != nil {
		return models.TaggedSeries{}, err
	}

	bars := make([]models.TaggedBar, len(series.Bars))
	copy(bars, series.Bars)
	for i := range bars {
		bars[i].Exclude = false
	}

	order := make([]int, len(bars))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return bars[order[a]].Timestamp.Before(bars[order[b]].Timestamp) })

	tier1Days := make(map[models.Date]struct{})
	for _, ev := range series.Events.Events {
		if ev.Flag(models.FlagTier1) {
			tier1Days[models.DateOf(ev.Timestamp, f.loc)] = struct{}{}
		}
		if ev.Flag(models.FlagTier2) {
			f.markWindow(bars, order, ev.Timestamp, f.windows.Tier2)
		}
		if ev.Flag(models.FlagTier3) {
			f.markWindow(bars, order, ev.Timestamp, f.windows.Tier3)
		}
		if ev.Flag(models.FlagFed) {
			f.markWindow(bars, order, ev.Timestamp, f.windows.Fed)
		}
	}

	if len(tier1Days) > 0 {
		for i := range bars {
			if _, ok := tier1Days[models.DateOf(bars[i].Timestamp, f.loc)]; ok {
				bars[i].Exclude = true
			}
		}
	}

	return models.TaggedSeries{Bars: bars, Events: series.Events}, nil
}

// markWindow excludes every bar in [at-half, at+half], found by binary search
// over the time-ordered bar index.
func (f *Filter) markWindow(bars []models.TaggedBar, order []int, at time.Time, half time.Duration) {
	from, to := at.Add(-half), at.Add(half)
	lo := sort.Search(len(order), func(i int) bool { return !bars[order[i]].Timestamp.Before(from) })
	for i := lo; i < len(order) && !bars[order[i]].Timestamp.After(to); i++ {
		bars[order[i]].Exclude = true
	}
}

func checkColumns(events models.ClassifiedEvents) error {
	if !events.Classified() {
		return &models.MissingColumnError{Column: "tier", Input: "tagged series events"}
	}
	for _, flag := range requiredFlags {
		if !events.HasFlag(flag) {
			return &models.MissingColumnError{Column: flag, Input: "tagged series events"}
		}
	}
	return nil
}

// NonEvents returns the bars not marked for exclusion.
func NonEvents(series models.TaggedSeries) []models.TaggedBar {
	out := make([]models.TaggedBar, 0, len(series.Bars))
	for _, tb := range series.Bars {
		if !tb.Exclude {
			out = append(out, tb)
		}
	}
	return out
}
