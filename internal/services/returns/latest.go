package returns

import "FinEvent/internal/domain/models"

// Latest returns the last n rows of a single-session series with z-scores
// against the full series and against the slice itself. n <= 0 or larger
// than the series selects every row.
func Latest(rows []models.SessionValue, n int) models.LatestView {
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}
	tail := rows[len(rows)-n:]

	all := Describe(Values(rows))
	slice := Describe(Values(tail))

	view := models.LatestView{Days: n, Summary: slice, Rows: make([]models.LatestRow, len(tail))}
	for i, r := range tail {
		view.Rows[i] = models.LatestRow{
			Date:     r.Date,
			Value:    r.Value,
			ZAll:     ZScore(r.Value, all),
			ZLatestN: ZScore(r.Value, slice),
		}
	}
	return view
}
