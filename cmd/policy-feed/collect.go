// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-feed/internal/ingest"
	"github.com/pdiddy/policy-feed/internal/report"
	"github.com/pdiddy/policy-feed/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection over all enabled sources",
	Long: `Collect fetches every enabled source, normalizes and classifies each item,
skips items already stored and upserts the rest. A failing source does not
stop the others; the run summary lists per-source counts and the most
recent errors.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().Bool("json", false, "output the run summary as JSON")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator(cfg, logger)
	if err != nil {
		return err
	}

	run, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, run)
	}
	return printRun(os.Stdout, run)
}

// printRun writes the per-source counts followed by the recorded errors.
func printRun(w io.Writer, run ingest.IngestionRun) error {
	elapsed := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(w, "Run %s in %s: %d record(s) stored\n\n", run.Status, elapsed, run.TotalProcessed())

	t := report.Table{Header: []string{"SOURCE", "REQUESTS", "FETCHED", "STORED", "DUPLICATES", "FAILED", "ERROR"}, MaxWidth: 60}
	for _, st := range types.AllSourceTypes {
		s, ok := run.Sources[st]
		if !ok {
			continue
		}
		t.AddRow(string(st),
			strconv.Itoa(s.Requests),
			strconv.Itoa(s.Fetched),
			strconv.Itoa(s.Processed),
			strconv.Itoa(s.Duplicates),
			strconv.Itoa(s.Failed),
			s.Error)
	}
	if err := t.Render(w); err != nil {
		return err
	}

	if len(run.Errors) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nErrors (%d most recent):\n", len(run.Errors))
	for _, e := range run.Errors {
		key := ""
		if e.Key != "" {
			key = " " + e.Key
		}
		fmt.Fprintf(w, "  %s [%s/%s]%s: %s\n", e.Time.Format(time.TimeOnly), e.Source, e.Scope, key, e.Message)
	}
	return nil
}
