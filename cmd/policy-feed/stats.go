// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-feed/internal/report"
	"github.com/pdiddy/policy-feed/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored record counts per source",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output counts as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.gateway.CountBySource(ctx)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, counts)
	}

	var total int64
	t := report.Table{Header: []string{"SOURCE", "RECORDS"}}
	for _, st := range types.AllSourceTypes {
		t.AddRow(string(st), strconv.FormatInt(counts[st], 10))
		total += counts[st]
	}
	t.AddRow("total", strconv.FormatInt(total, 10))
	return t.Render(os.Stdout)
}
