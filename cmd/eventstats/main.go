package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/usecase"
)

type rootFlags struct {
	config   string
	bars     string
	events   string
	symbol   string
	interval string
	nonEvent bool
	out      string
	from     string
	to       string
}

type reportFlags struct {
	start     string
	end       string
	month     int
	dayFrom   int
	dayTo     int
	latest    int
	latestOut string
}

type matrixFlags struct {
	hours   int
	target  float64
	version string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rf rootFlags
	root := &cobra.Command{
		Use:          "eventstats",
		Short:        "Event-aware session statistics over CSV or workbook inputs",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.config, "config", "", "YAML config for keywords, sessions and timezones")
	pf.StringVar(&rf.bars, "bars", "", "bar CSV (timestamp,open,high,low,close[,adj_close,volume])")
	pf.StringVar(&rf.events, "events", "", "event CSV (datetime,events) or .xlsx calendar")
	pf.StringVar(&rf.symbol, "symbol", "ES", "symbol code of the bar file")
	pf.StringVar(&rf.interval, "interval", "1h", "bar interval of the bar file")
	pf.BoolVar(&rf.nonEvent, "nonevent", false, "drop bars near tiered events")
	pf.StringVar(&rf.out, "out", "", "write the result as CSV to this path")
	pf.StringVar(&rf.from, "from", "", "first bar time")
	pf.StringVar(&rf.to, "to", "", "last bar time")

	root.AddCommand(
		newClassifyCmd(&rf),
		newSessionCmd(&rf, models.MeasureReturn, "returns", "Per-session absolute returns in bps"),
		newSessionCmd(&rf, models.MeasureVolatility, "volatility", "Per-session high-low ranges in bps"),
		newMatrixCmd(&rf),
	)
	return root
}

func newClassifyCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Assign tiers and flags to every event",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd.Context(), rf, false)
			if err != nil {
				return err
			}
			classified, err := env.analysis.Classify(env.events, nil)
			if err != nil {
				return err
			}
			printClassified(cmd.OutOrStdout(), classified)
			return env.export(func(f *os.File) error { return writeClassified(f, classified) })
		},
	}
}

func newSessionCmd(rf *rootFlags, measure models.Measure, use, short string) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd.Context(), rf, true)
			if err != nil {
				return err
			}
			p, err := env.reportParams(measure, f)
			if err != nil {
				return err
			}
			rep, _, err := env.analysis.SessionReport(cmd.Context(), p)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			if err := env.export(func(out *os.File) error { return writeReport(out, rep) }); err != nil {
				return err
			}
			if f.latestOut == "" {
				return nil
			}
			return writeFile(f.latestOut, func(out *os.File) error { return writeLatest(out, rep) })
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	fl.StringVar(&f.end, "end", "", "last day, YYYY-MM-DD")
	fl.IntVar(&f.month, "month", 0, "keep only this month (1-12)")
	fl.IntVar(&f.dayFrom, "day-from", 1, "first day of month")
	fl.IntVar(&f.dayTo, "day-to", 31, "last day of month")
	fl.IntVar(&f.latest, "latest", 0, "latest-N-days view length")
	fl.StringVar(&f.latestOut, "latest-out", "", "write the all-day latest view as CSV to this path")
	return cmd
}

func newMatrixCmd(rf *rootFlags) *cobra.Command {
	var f matrixFlags
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Probability that a move over N bars exceeds each bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd.Context(), rf, true)
			if err != nil {
				return err
			}
			version, err := models.ParseVersion(f.version)
			if err != nil {
				return err
			}
			sp, err := env.seriesParams()
			if err != nil {
				return err
			}
			res, _, err := env.analysis.Matrix(cmd.Context(), usecase.MatrixParams{
				SeriesParams: sp,
				Hours:        f.hours,
				Target:       f.target,
				Version:      version,
			})
			if err != nil {
				return err
			}
			printMatrix(cmd.OutOrStdout(), res)
			return env.export(func(out *os.File) error { return writeMatrix(out, res) })
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.hours, "hours", 24, "largest horizon in bars")
	fl.Float64Var(&f.target, "target", 10, "target move in bps for CDF/CCDF")
	fl.StringVar(&f.version, "version", "Absolute", "Absolute, Up or Down")
	return cmd
}

func parseDay(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: day %q", models.ErrInvalidArgument, s)
	}
	return d, nil
}
