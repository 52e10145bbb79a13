package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/service/export"
)

func printClassified(w io.Writer, ev models.ClassifiedEvents) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Event", "Tier", "Flags"})
	table.SetAutoWrapText(false)
	for _, e := range ev.Events {
		var set []string
		for _, f := range ev.Flags {
			if e.Flag(f) {
				set = append(set, f)
			}
		}
		sort.Strings(set)
		table.Append([]string{e.Timestamp.Format(time.RFC3339), e.Name, strconv.Itoa(e.Tier), strings.Join(set, " ")})
	}
	table.Render()
}

func printReport(w io.Writer, rep models.SessionReport) {
	fmt.Fprintf(w, "%s %s %s non_event=%t %s..%s\n", rep.Symbol, rep.Interval, rep.Measure, rep.NonEvent, rep.From, rep.To)
	if rep.Empty {
		fmt.Fprintln(w, "no bars left after filtering")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Session", "Days", "Mean", "Median", "Std", "Min", "Max", "Latest", "Pctl"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range rep.Sessions {
		sum := s.Summary
		table.Append([]string{
			string(s.Session),
			strconv.Itoa(sum.Count),
			num(sum.Mean),
			num(sum.Median),
			optional(sum.Std),
			num(sum.Min),
			num(sum.Max),
			num(s.LatestValue),
			optional(s.LatestPercentile),
		})
	}
	table.Render()
}

func printMatrix(w io.Writer, res models.ProbabilityResult) {
	fmt.Fprintf(w, "%s %s %s target=%s cdf=%s ccdf=%s\n",
		res.Symbol, res.Interval, res.Version, num(res.Target), optional(res.CDF), optional(res.CCDF))
	if res.Empty {
		fmt.Fprintln(w, "no bars left after filtering")
		return
	}
	m := res.Matrix
	header := make([]string, 0, len(m.Hours)+1)
	header = append(header, "Bps")
	for _, h := range m.Hours {
		header = append(header, strconv.Itoa(h))
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, b := range m.Buckets {
		row := make([]string, 0, len(m.Hours)+1)
		row = append(row, num(b))
		for j := range m.Hours {
			row = append(row, optional(m.Cells[i][j]))
		}
		table.Append(row)
	}
	table.Render()
}

func writeClassified(f *os.File, ev models.ClassifiedEvents) error {
	return export.WriteClassified(f, ev)
}

// writeReport writes every session's daily values in one long table.
func writeReport(f *os.File, rep models.SessionReport) error {
	var values []models.SessionValue
	for _, s := range rep.Sessions {
		values = append(values, s.Series...)
	}
	return export.WriteSessionValues(f, values)
}

// writeLatest writes the all-day latest view. An empty report writes only
// the header.
func writeLatest(f *os.File, rep models.SessionReport) error {
	for _, s := range rep.Sessions {
		if s.Session == models.SessionAllDay {
			return export.WriteLatest(f, s.Latest)
		}
	}
	return export.WriteLatest(f, models.LatestView{})
}

func writeMatrix(f *os.File, res models.ProbabilityResult) error {
	return export.WriteMatrix(f, res.Matrix)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func optional(n models.Number) string {
	if !n.Defined() {
		return "-"
	}
	return num(n.Float())
}
