package returns

import (
	"fmt"
	"time"

	"FinEvent/internal/domain/models"
)

// DateFilter keeps bars by calendar day. A month/day window takes priority
// over the Start/End range; zero fields are unbounded.
type DateFilter struct {
	Start   models.Date
	End     models.Date
	Month   time.Month
	DayFrom int
	DayTo   int
}

func (f DateFilter) IsZero() bool {
	return f.Start.IsZero() && f.End.IsZero() && f.Month == 0
}

func (f DateFilter) Validate() error {
	if f.Month != 0 {
		if f.Month < time.January || f.Month > time.December {
			return fmt.Errorf("%w: month %d", models.ErrInvalidArgument, f.Month)
		}
		if f.DayFrom < 1 || f.DayTo > 31 || f.DayFrom > f.DayTo {
			return fmt.Errorf("%w: day range %d..%d", models.ErrInvalidArgument, f.DayFrom, f.DayTo)
		}
		return nil
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return fmt.Errorf("%w: end %s before start %s", models.ErrInvalidArgument, f.End, f.Start)
	}
	return nil
}

// Match reports whether day passes the filter.
func (f DateFilter) Match(day models.Date) bool {
	if f.Month != 0 {
		return day.Month == f.Month && day.Day >= f.DayFrom && day.Day <= f.DayTo
	}
	if !f.Start.IsZero() && day.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && day.After(f.End) {
		return false
	}
	return true
}

// Apply keeps the bars whose calendar day in loc passes the filter.
func (f DateFilter) Apply(bars []models.TaggedBar, loc *time.Location) []models.TaggedBar {
	if f.IsZero() {
		return bars
	}
	out := make([]models.TaggedBar, 0, len(bars))
	for _, tb := range bars {
		if f.Match(models.DateOf(tb.Timestamp, loc)) {
			out = append(out, tb)
		}
	}
	return out
}
