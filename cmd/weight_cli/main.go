// Package main is a terminal client for the weight dataset: list, add, missing dates,
// forecast (optionally as a PNG chart) and summary. It works on the configured source directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/2beens/weightcontrol/internal"
	"github.com/2beens/weightcontrol/internal/config"
	"github.com/2beens/weightcontrol/internal/logging"
	"github.com/2beens/weightcontrol/internal/weight"
	"github.com/2beens/weightcontrol/internal/weight/chart"
	"github.com/2beens/weightcontrol/pkg"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: weight_cli [-env dev] [-config ./config.toml] <command> [flags]

commands:
  load      list entries with 7-day averages and activity (-last n, -unit lbs|kgs)
  add       add today's (or -date) entry (-weight, -food, -exer, -unit)
  missing   list dates without an entry (-as-of YYYY-MM-DD)
  forecast  weekly change and projection (-weeks 1..10, -unit, -png path)
  summary   dataset overview
`

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	log.SetOutput(os.Stderr)
	log.SetLevel(logging.GetLevel(cfg.LogLevel))

	ctx := context.Background()
	analysis, closeAnalysis, err := internal.OpenAnalysis(ctx, internal.OpenAnalysisParams{
		Config:     cfg,
		DBUser:     os.Getenv("WEIGHT_DB_USER"),
		DBPassword: os.Getenv("WEIGHT_DB_PASS"),
	})
	if err != nil {
		log.Fatalf("open dataset: %s", err)
	}

	err = run(ctx, analysis, flag.Arg(0), flag.Args()[1:], os.Stdout)
	closeAnalysis()

	var insufficient *weight.InsufficientDataError
	switch {
	case err == nil:
	case errors.Is(err, weight.ErrConflict):
		fmt.Fprintln(os.Stderr, "an entry for this date already exists, nothing changed")
		os.Exit(3)
	case errors.As(err, &insufficient):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, analysis *weight.Analysis, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "load", "list":
		return runLoad(analysis, args, out)
	case "add":
		return runAdd(ctx, analysis, args, out)
	case "missing":
		return runMissing(analysis, args, out)
	case "forecast":
		return runForecast(analysis, args, out)
	case "summary":
		return runSummary(analysis, out)
	default:
		return fmt.Errorf("unknown command [%s]\n%s", cmd, usage)
	}
}

func parseUnitFlag(fs *flag.FlagSet) *string {
	return fs.String("unit", "lbs", "weight unit [lbs | kgs]")
}

func runLoad(analysis *weight.Analysis, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	last := fs.Int("last", 0, "show only the most recent n entries")
	unitStr := parseUnitFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	unit, err := weight.ParseUnit(*unitStr)
	if err != nil {
		return err
	}

	rows := analysis.Derived().Rows
	if *last > 0 && *last < len(rows) {
		rows = rows[len(rows)-*last:]
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "date\tweight (%s)\tfood\texer\tweight 7d\tfood 7d\texer 7d\tactivity\t\n", unit)
	for _, row := range rows {
		exer := 0
		if row.Exercised {
			exer = 1
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			row.Date.Format(weight.DateLayout),
			unit.FromLbs(row.Weight),
			row.Food,
			exer,
			unit.Value(row.WeightAvg7),
			row.FoodAvg7,
			row.ExerAvg7,
			row.Activity,
		)
	}
	return tw.Flush()
}

func runAdd(ctx context.Context, analysis *weight.Analysis, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	date := fs.String("date", "", "entry date YYYY-MM-DD (default today)")
	weightVal := fs.Float64("weight", 0, "body weight (default: last recorded)")
	food := fs.Int("food", -1, "food score 0-10")
	exer := fs.Bool("exer", false, "exercised that day")
	unitStr := parseUnitFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	unit, err := weight.ParseUnit(*unitStr)
	if err != nil {
		return err
	}
	if *food < 0 {
		return errors.New("-food is required")
	}

	dto := weight.EntryDTO{
		Date:      *date,
		Weight:    *weightVal,
		Food:      *food,
		Exercised: *exer,
	}
	if dto.Weight == 0 {
		lastWeight, ok := analysis.LastWeight()
		if !ok {
			return errors.New("-weight is required for the first entry")
		}
		dto.Weight = unit.FromLbs(lastWeight)
	}

	entry, err := dto.Entry(unit, analysis.Today())
	if err != nil {
		return err
	}

	res, err := analysis.AddEntry(ctx, entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s (%.1f %s)\n", res, entry.Date.Format(weight.DateLayout), unit.FromLbs(entry.Weight), unit)
	return nil
}

func runMissing(analysis *weight.Analysis, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("missing", flag.ContinueOnError)
	asOfStr := fs.String("as-of", "", "last date to check YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf := analysis.Today()
	if *asOfStr != "" {
		parsed, err := time.Parse(weight.DateLayout, *asOfStr)
		if err != nil {
			return fmt.Errorf("parse -as-of: %w", err)
		}
		asOf = parsed
	}

	missing, err := analysis.Missing(asOf)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Fprintln(out, "no missing dates")
		return nil
	}
	for _, d := range missing {
		fmt.Fprintln(out, d.Format(weight.DateLayout))
	}
	return nil
}

func runForecast(analysis *weight.Analysis, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	weeks := fs.Int("weeks", weight.DefaultForecastWeeks, "weeks to project (1-10)")
	pngPath := fs.String("png", "", "also write the forecast chart to this PNG file")
	unitStr := parseUnitFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	unit, err := weight.ParseUnit(*unitStr)
	if err != nil {
		return err
	}

	forecast, err := analysis.Forecast(*weeks)
	if err != nil {
		return err
	}

	s := forecast.Scenarios
	fmt.Fprintf(out, "last: %.1f %s on %s\n", unit.FromLbs(forecast.Last), unit, forecast.Start.Format(weight.DateLayout))
	fmt.Fprintf(out, "inputs: food %.2f (norm %.2f), exercise %.0f (norm %.2f), blended %.2f\n",
		s.Food, s.FoodNorm, s.Exer, s.ExerNorm, s.Blended)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "scenario\tper week\tafter %d weeks\n", forecast.Weeks)
	for _, sc := range []struct {
		name       string
		rate       float64
		trajectory []weight.TrajectoryPoint
	}{
		{"expected", s.Expected, forecast.Expected},
		{"bad", s.Bad, forecast.Bad},
		{"good", s.Good, forecast.Good},
	} {
		end := sc.trajectory[len(sc.trajectory)-1]
		fmt.Fprintf(tw, "%s\t%+.2f %s\t%.1f %s (%s)\n",
			sc.name, unit.FromLbs(sc.rate), unit, unit.FromLbs(end.Value), unit, end.Date.Format(weight.DateLayout))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *pngPath == "" {
		return nil
	}
	renderer, err := chart.NewRenderer(chart.DefaultWidth, chart.DefaultHeight)
	if err != nil {
		return err
	}
	png, err := renderer.Forecast(forecast, analysis.LastN(28), unit)
	if err != nil {
		return fmt.Errorf("render forecast chart: %w", err)
	}
	if err := pkg.EnsureDir(filepath.Dir(*pngPath)); err != nil {
		return err
	}
	if err := os.WriteFile(*pngPath, png, 0o644); err != nil {
		return fmt.Errorf("write forecast chart: %w", err)
	}
	fmt.Fprintf(out, "chart written to %s\n", *pngPath)
	return nil
}

func runSummary(analysis *weight.Analysis, out io.Writer) error {
	summary := analysis.Summary()
	if summary.Entries == 0 {
		fmt.Fprintf(out, "no entries yet in %s\n", analysis.SourceName())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "source\t%s\n", analysis.SourceName())
	fmt.Fprintf(tw, "entries\t%d\n", summary.Entries)
	fmt.Fprintf(tw, "from\t%s\n", summary.FirstDate.Format(weight.DateLayout))
	fmt.Fprintf(tw, "to\t%s\n", summary.LastDate.Format(weight.DateLayout))
	fmt.Fprintf(tw, "missing\t%d\n", summary.Missing)
	fmt.Fprintf(tw, "last weight\t%s lbs\n", summary.LastWeight)
	fmt.Fprintf(tw, "7-day avg\t%s lbs\n", summary.WeightAvg7)
	fmt.Fprintf(tw, "activity\t%s\n", summary.Activity)
	return tw.Flush()
}
