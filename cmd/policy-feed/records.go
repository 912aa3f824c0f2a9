// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/policy-feed/internal/report"
	"github.com/pdiddy/policy-feed/internal/store"
	"github.com/pdiddy/policy-feed/pkg/types"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and maintain stored records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records, newest first",
	RunE:  runRecordsList,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

var recordsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Increment the view counter of a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsView,
}

var recordsAttachCmd = &cobra.Command{
	Use:   "attach <id>",
	Short: "Upload a thumbnail or infographic and link it to a record",
	Long: `Attach uploads image files to the asset bucket and stores their locations
on the record. Only the assets given are changed; re-collecting the record
later keeps them.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecordsAttach,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records as YAML",
	RunE:  runRecordsExport,
}

func init() {
	for _, c := range []*cobra.Command{recordsListCmd, recordsExportCmd} {
		c.Flags().String("source", "", "filter by source type: news, welfare-service, youth-program")
		c.Flags().String("category", "", "filter by category")
		c.Flags().Uint64("limit", 20, "maximum number of records (0 = all)")
		c.Flags().Uint64("offset", 0, "number of records to skip")
	}
	recordsListCmd.Flags().Bool("json", false, "output records as JSON")
	recordsShowCmd.Flags().Bool("json", false, "output the record as JSON")
	recordsAttachCmd.Flags().String("thumbnail", "", "thumbnail image file")
	recordsAttachCmd.Flags().String("infographic", "", "infographic image file")
	recordsExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd, recordsViewCmd, recordsAttachCmd, recordsExportCmd)
	rootCmd.AddCommand(recordsCmd)
}

func listFilter(cmd *cobra.Command) (store.ListFilter, error) {
	src, _ := cmd.Flags().GetString("source")
	cat, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetUint64("limit")
	offset, _ := cmd.Flags().GetUint64("offset")

	f := store.ListFilter{Category: cat, Limit: limit, Offset: offset}
	if src != "" {
		f.SourceType = types.SourceType(src)
		if !f.SourceType.Valid() {
			return f, fmt.Errorf("unknown source type %q", src)
		}
	}
	return f, nil
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	f, err := listFilter(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.store.List(ctx, f)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, recs)
	}
	if len(recs) == 0 {
		fmt.Println("No records.")
		return nil
	}
	t := report.Table{Header: []string{"ID", "SOURCE", "CATEGORY", "PUBLISHED", "VIEWS", "TITLE"}, MaxWidth: 50}
	for _, r := range recs {
		t.AddRow(r.ID, string(r.SourceType), r.Category,
			r.PublishedAt.Format(time.DateOnly), strconv.FormatInt(r.ViewCount, 10), r.Title)
	}
	return t.Render(os.Stdout)
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.gateway.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, rec)
	}
	printRecord(os.Stdout, rec)
	return nil
}

func printRecord(w io.Writer, r types.StoredRecord) {
	fmt.Fprintf(w, "%s\n", r.Title)
	fmt.Fprintf(w, "  ID:         %s\n", r.ID)
	fmt.Fprintf(w, "  Source:     %s", r.SourceType)
	if r.ExternalID != "" {
		fmt.Fprintf(w, " (%s)", r.ExternalID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Category:   %s\n", r.Category)
	fmt.Fprintf(w, "  Published:  %s\n", r.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Views:      %d\n", r.ViewCount)
	if len(r.Keywords) > 0 {
		fmt.Fprintf(w, "  Keywords:   %s\n", strings.Join(r.Keywords, ", "))
	}
	if r.SourceURL != "" {
		fmt.Fprintf(w, "  URL:        %s\n", r.SourceURL)
	}
	if r.ThumbnailURL != "" {
		fmt.Fprintf(w, "  Thumbnail:  %s\n", r.ThumbnailURL)
	}
	if r.InfographicURL != "" {
		fmt.Fprintf(w, "  Infographic: %s\n", r.InfographicURL)
	}
	fmt.Fprintf(w, "\n%s\n", r.Summary)
}

func runRecordsView(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.gateway.IncrementViewCount(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d view(s)\n", args[0], n)
	return nil
}

func runRecordsAttach(cmd *cobra.Command, args []string) error {
	id := args[0]
	thumb, _ := cmd.Flags().GetString("thumbnail")
	info, _ := cmd.Flags().GetString("infographic")
	if thumb == "" && info == "" {
		return fmt.Errorf("at least one of --thumbnail or --infographic is required")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.gateway.Get(ctx, id); err != nil {
		return err
	}

	upload := func(file, kind string) (string, error) {
		if file == "" {
			return "", nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", kind, err)
		}
		return a.gateway.UploadAsset(ctx, id+"/"+kind+filepath.Ext(file), data)
	}

	var assets types.VisualAssets
	if assets.ThumbnailURL, err = upload(thumb, "thumbnail"); err != nil {
		return err
	}
	if assets.InfographicURL, err = upload(info, "infographic"); err != nil {
		return err
	}
	if err := a.gateway.UpdateVisualAssets(ctx, id, assets); err != nil {
		return err
	}
	fmt.Printf("Attached assets to %s\n", id)
	return nil
}

func runRecordsExport(cmd *cobra.Command, args []string) error {
	f, err := listFilter(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.store.List(ctx, f)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer file.Close()
		out = file
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d record(s)\n", len(recs))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
