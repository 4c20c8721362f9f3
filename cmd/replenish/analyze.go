package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze one cycle-count export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "counts", Usage: "Cycle-count export (.csv or .xlsx)", Required: true},
			&cli.StringFlag{Name: "po", Usage: "Purchase-order export for lead times and open orders"},
			&cli.IntFlag{
				Name:    "window",
				Usage:   "Planning window in days: 0, 30, 60 or 90",
				Value:   90,
				EnvVars: []string{"ENGINE_PLANNING_WINDOW_DAYS"},
			},
			&cli.StringSliceFlag{Name: "lead", Usage: "Vendor lead-time override as VENDOR=WEEKS (repeatable)"},
			&cli.StringFlag{Name: "format", Usage: "Output format: table, csv, json or xlsx", Value: "table"},
			&cli.StringFlag{Name: "out", Usage: "Output path (stdout when empty; required for xlsx)"},
			&cli.BoolFlag{Name: "validation", Usage: "Print the validation report instead of decisions"},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}
	if format == "xlsx" && c.String("out") == "" {
		return errors.New("--out is required for xlsx output")
	}

	overrides, err := parseLeadOverrides(c.StringSlice("lead"))
	if err != nil {
		return err
	}

	_, engCfg, err := engineConfig(c)
	if err != nil {
		return err
	}

	eng := engine.New(engCfg)
	if err := eng.SetPlanningWindow(c.Int("window")); err != nil {
		return err
	}
	for vendor, weeks := range overrides {
		if err := eng.SetVendorLeadTime(vendor, weeks); err != nil {
			return fmt.Errorf("--lead %s: %w", vendor, err)
		}
	}

	if path := c.String("po"); path != "" {
		pos, stats, err := ingest.LoadPurchaseOrders(path)
		if err != nil {
			return err
		}
		summary := eng.IngestPurchaseOrders(pos)
		log.Info().
			Str("file", path).
			Int("rows", stats.Rows).
			Int("skipped", stats.Skipped).
			Int("samples", summary.Samples).
			Int("open", summary.Open).
			Msg("purchase orders loaded")
	}

	ds, err := ingest.LoadCounts(c.String("counts"), ingest.ResolveOptions{Today: engCfg.Now()})
	if err != nil {
		return err
	}
	if _, err := eng.Ingest(ds); err != nil {
		if errors.Is(err, engine.ErrNoDemandColumns) {
			_ = writeValidation(c.App.Writer, "table", "", eng.Report())
		}
		return err
	}

	if c.Bool("validation") {
		return writeValidation(c.App.Writer, format, c.String("out"), eng.Report())
	}
	return writeDecisions(c.App.Writer, format, c.String("out"), eng.Decisions(), eng.Report())
}

// parseLeadOverrides reads VENDOR=WEEKS pairs. Vendor names may contain '='.
func parseLeadOverrides(values []string) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for _, v := range values {
		i := strings.LastIndex(v, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --lead %q: want VENDOR=WEEKS", v)
		}
		vendor := strings.TrimSpace(v[:i])
		weeks, err := strconv.ParseFloat(strings.TrimSpace(v[i+1:]), 64)
		if vendor == "" || err != nil {
			return nil, fmt.Errorf("invalid --lead %q: want VENDOR=WEEKS", v)
		}
		out[vendor] = weeks
	}
	return out, nil
}
