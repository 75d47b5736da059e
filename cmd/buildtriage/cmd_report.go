package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"buildtriage/internal/catalog"
	"buildtriage/internal/report"
	"buildtriage/internal/triage"
)

var reportFlags struct {
	job            string
	hoursAgo       int
	includeSuccess bool
	catalogPath    string
	format         string
	parallel       int
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report classified build failures for a job",
	Long: `Walk the job's builds from the most recent completed one back to the
time-range boundary, classify each failure's console log against the
signature catalog and print one row per reported build.

Usage:
  buildtriage report -j nightly-deploy -t 24
  buildtriage report -j nightly -s --format markdown
  buildtriage report --format json | jq '.rows[].causes'`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportFlags.job, "job", "j", "", "Jenkins job name or configured alias")
	f.IntVarP(&reportFlags.hoursAgo, "hours-ago", "t", 0, "Report builds newer than this many hours")
	f.BoolVarP(&reportFlags.includeSuccess, "include-success", "s", false, "Keep successful builds in the report")
	f.StringVar(&reportFlags.catalogPath, "catalog", "", "Path to the failure signature catalog")
	f.StringVar(&reportFlags.format, "format", "table", "Output format: table, markdown or json")
	f.IntVar(&reportFlags.parallel, "parallel", 0, "Concurrent console log fetches")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("job") {
		cfg.Report.Job = reportFlags.job
	}
	if cmd.Flags().Changed("hours-ago") {
		cfg.Report.HoursAgo = reportFlags.hoursAgo
	}
	if cmd.Flags().Changed("include-success") {
		cfg.Report.IncludeSuccess = reportFlags.includeSuccess
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog.Path = reportFlags.catalogPath
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Report.Parallelism = reportFlags.parallel
	}

	if cfg.Report.Job == "" {
		return fmt.Errorf("no job given: set --job or report.job in the settings file")
	}
	job := cfg.ResolveJob(cfg.Report.Job)

	jsonOut := strings.EqualFold(reportFlags.format, "json")
	var mode report.Mode
	if !jsonOut {
		m, ok := report.ParseMode(reportFlags.format)
		if !ok {
			return fmt.Errorf("unknown format %q (table, markdown or json)", reportFlags.format)
		}
		mode = m
	}

	client, err := newJenkinsClient(cfg, logger)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	runner := triage.NewRunner(logger, client, cat, nil, cfg.Report.Parallelism)
	snap, err := runner.Run(cmd.Context(), triage.Params{
		Job:            job,
		HoursAgo:       cfg.Report.HoursAgo,
		IncludeSuccess: cfg.Report.IncludeSuccess,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, report.Render(snap.Rows, mode))
	fmt.Fprintln(out)
	fmt.Fprintln(out, report.RenderSummary(snap.Summary, mode))
	return nil
}
