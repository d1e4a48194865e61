package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/llmsgen/internal/config"
	"github.com/nao1215/llmsgen/internal/database"
	"github.com/nao1215/llmsgen/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// historyTimeFormat is how run timestamps are shown.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// It reads the runs stored by 'generate --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored site maps and compare runs",
		Long: `History reads the site maps stored by 'llmsgen generate --save'.

Each stored run keeps the page list, the generated document, and a
fingerprint of the site structure, so two runs of the same origin can be
compared to see which pages appeared, disappeared, or changed title.

Examples:
  # List every origin with stored runs
  llmsgen history origins

  # List the runs of one origin
  llmsgen history list https://example.com

  # Compare the latest two runs
  llmsgen history diff https://example.com

  # Compare the latest run with run 3, as markdown
  llmsgen history diff --with-run-id 3 --markdown https://example.com

  # Print the document stored with run 3
  llmsgen history show 3`,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.AddCommand(newHistoryOriginsCmd())
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryDiffCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryOriginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "origins",
		Short: "List origins with stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				return listOrigins(ctx, cmd.OutOrStdout(), db, jsonOutput)
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <origin>",
		Short: "List stored runs of an origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := normalizeOriginArg(args[0])
			if err != nil {
				return err
			}
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				return listRuns(ctx, cmd.OutOrStdout(), db, origin, jsonOutput)
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	return cmd
}

func newHistoryDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <origin>",
		Short: "Compare the latest run of an origin with an earlier one",
		Long: `Diff compares the page lists of two runs of one origin.

By default the latest run is compared with the run before it. Use
--with-run-id to compare the latest run with a specific earlier run
(see 'llmsgen history list' for IDs).`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryDiffCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use 'history list' to see available IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the document stored with a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			core, err := cmd.Flags().GetBool("core")
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				run, err := db.GetRun(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get run: %w", err)
				}
				if run == nil {
					return fmt.Errorf("run %d not found", id)
				}
				doc := run.FinalDocument
				if core || doc == "" {
					doc = run.Document
				}
				_, err = io.WriteString(cmd.OutOrStdout(), doc)
				return err
			})
		},
	}
	cmd.Flags().Bool("core", false, "Print the document before enhancement")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
				if err := db.DeleteRun(ctx, id); err != nil {
					return fmt.Errorf("failed to delete run: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", id)
				return nil
			})
		},
	}
}

// withHistoryDB opens the existing history database and runs fn.
// The database is never created here; a missing file means nothing was
// saved yet.
func withHistoryDB(cmd *cobra.Command, fn func(context.Context, *database.HistoryDB) error) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dbDir, database.DBFileName)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no history found in %s (use 'llmsgen generate --save' to store runs)", dbDir)
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, db)
}

// normalizeOriginArg normalizes an origin the same way generate does, so
// "HTTPS://Example.com" finds runs stored for "https://example.com".
func normalizeOriginArg(arg string) (string, error) {
	o, err := model.NewOrigin(arg)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", arg, err)
	}
	return o.String(), nil
}

// parseRunID parses a positive run ID.
func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run ID %q: must be a positive integer", s)
	}
	return id, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// listOrigins prints every origin with stored runs.
func listOrigins(ctx context.Context, w io.Writer, db *database.HistoryDB, jsonOutput bool) error {
	origins, err := db.ListOrigins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list origins: %w", err)
	}

	if jsonOutput {
		if origins == nil {
			origins = []database.OriginSummary{}
		}
		return writeJSON(w, origins)
	}

	if len(origins) == 0 {
		fmt.Fprintln(w, "No stored runs found in the database.")
		fmt.Fprintln(w, "\nUse 'llmsgen generate --save <url>' to store a run.")
		return nil
	}

	fmt.Fprintf(w, "Origins with stored runs (%d):\n\n", len(origins))
	fmt.Fprintf(w, "  %-50s  %-5s  %s\n", "Origin", "Runs", "Latest")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 80))
	for _, o := range origins {
		fmt.Fprintf(w, "  %-50s  %-5d  %s\n", o.Origin, o.Runs, o.LatestRun.Local().Format(historyTimeFormat))
	}
	fmt.Fprintln(w, "\nUse 'llmsgen history list <origin>' to see the runs of an origin.")
	return nil
}

// listRuns prints the stored runs of origin, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.HistoryDB, origin string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, origin)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return writeJSON(w, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(w, "No stored runs found for %s\n", origin)
		fmt.Fprintln(w, "\nUse 'llmsgen generate --save' to store a run of this origin.")
		return nil
	}

	fmt.Fprintf(w, "Runs of %s (%d):\n\n", origin, len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-6s  %-8s  %-12s  %s\n", "ID", "Date", "Pages", "Enhanced", "Fingerprint", "Stopped")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 80))
	for _, r := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-6d  %-8s  %-12s  %s\n",
			r.ID,
			r.GeneratedAt.Local().Format(historyTimeFormat),
			r.PageCount,
			yesNo(r.Enhanced),
			shortFingerprint(r.Fingerprint),
			r.StopReason,
		)
	}

	fmt.Fprintln(w, "\nUse 'llmsgen history diff <origin>' to compare the latest two runs.")
	fmt.Fprintln(w, "Use 'llmsgen history diff --with-run-id <id> <origin>' to compare with a specific run.")
	return nil
}

// runHistoryDiffCmd executes the history diff command.
func runHistoryDiffCmd(cmd *cobra.Command, args []string) error {
	// Validate arguments before opening the database.
	origin, err := normalizeOriginArg(args[0])
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	return withHistoryDB(cmd, func(ctx context.Context, db *database.HistoryDB) error {
		diff, err := diffRuns(ctx, db, origin, withRunID)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch {
		case jsonOutput:
			return writeJSON(w, diff)
		case markdownOutput:
			return outputDiffMarkdown(w, diff)
		default:
			outputDiffText(w, diff)
			return nil
		}
	})
}

// diffRuns picks the two runs to compare: the latest run against either
// the run before it or the run with ID withRunID.
func diffRuns(ctx context.Context, db *database.HistoryDB, origin string, withRunID int64) (*database.RunDiff, error) {
	latest, err := db.LatestRuns(ctx, origin, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("no stored runs found for %s", origin)
	}

	previousID := withRunID
	if previousID == 0 {
		if len(latest) < 2 {
			return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
		}
		previousID = latest[1].ID
	}
	if previousID == latest[0].ID {
		return nil, fmt.Errorf("run %d is the latest run; choose an earlier run to compare with", previousID)
	}

	diff, err := db.DiffRuns(ctx, previousID, latest[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compare runs: %w", err)
	}
	return diff, nil
}

// outputDiffText outputs the comparison in human-readable text format.
func outputDiffText(w io.Writer, d *database.RunDiff) {
	fmt.Fprintf(w, "Site Map Comparison: %s\n", d.Origin)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", diffStatus(d))

	fmt.Fprintf(w, "\nPrevious run: #%d  %s  (%d pages)\n",
		d.Previous.ID, d.Previous.GeneratedAt.Local().Format(historyTimeFormat), d.Previous.PageCount)
	fmt.Fprintf(w, "Current run:  #%d  %s  (%d pages)\n",
		d.Current.ID, d.Current.GeneratedAt.Local().Format(historyTimeFormat), d.Current.PageCount)

	if len(d.Added) > 0 {
		fmt.Fprintf(w, "\nAdded Pages (%d):\n", len(d.Added))
		for _, p := range d.Added {
			fmt.Fprintf(w, "  [+] %s (%s)\n", p.URL, p.Title)
		}
	}

	if len(d.Removed) > 0 {
		fmt.Fprintf(w, "\nRemoved Pages (%d):\n", len(d.Removed))
		for _, p := range d.Removed {
			fmt.Fprintf(w, "  [-] %s (%s)\n", p.URL, p.Title)
		}
	}

	if len(d.Retitled) > 0 {
		fmt.Fprintf(w, "\nRetitled Pages (%d):\n", len(d.Retitled))
		for _, c := range d.Retitled {
			fmt.Fprintf(w, "  [~] %s: %q -> %q\n", c.URL, c.Before, c.After)
		}
	}

	if d.Unchanged > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d pages\n", d.Unchanged)
	}
}

// outputDiffMarkdown outputs the comparison in Markdown format.
func outputDiffMarkdown(w io.Writer, d *database.RunDiff) error {
	md := markdown.NewMarkdown(w)

	md.H1("Site Map Comparison: " + d.Origin)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**Status:** " + diffStatus(d))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "#" + strconv.FormatInt(d.Previous.ID, 10), "#" + strconv.FormatInt(d.Current.ID, 10), "-"},
			{"Date", d.Previous.GeneratedAt.Local().Format("2006-01-02 15:04"), d.Current.GeneratedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"**Pages**", strconv.Itoa(d.Previous.PageCount), strconv.Itoa(d.Current.PageCount), formatDelta(d.Current.PageCount - d.Previous.PageCount)},
		},
	})
	md.PlainText("")

	if len(d.Added) > 0 {
		md.H2f("Added Pages (%d)", len(d.Added))
		md.PlainText("")
		md.BulletList(pageLinks(d.Added)...)
		md.PlainText("")
	}

	if len(d.Removed) > 0 {
		md.H2f("Removed Pages (%d)", len(d.Removed))
		md.PlainText("")
		items := pageLinks(d.Removed)
		for i := range items {
			items[i] = "~~" + items[i] + "~~"
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(d.Retitled) > 0 {
		md.H2f("Retitled Pages (%d)", len(d.Retitled))
		md.PlainText("")
		rows := make([][]string, len(d.Retitled))
		for i, c := range d.Retitled {
			rows[i] = []string{"`" + c.URL + "`", c.Before, c.After}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Before", "After"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if d.Unchanged > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d pages unchanged*", d.Unchanged)
	}

	return md.Build()
}

// pageLinks formats pages as markdown links.
func pageLinks(pages []database.PageRecord) []string {
	items := make([]string, len(pages))
	for i, p := range pages {
		items[i] = markdown.Link(p.Title, p.URL)
	}
	return items
}

// diffStatus summarizes a comparison in one line.
func diffStatus(d *database.RunDiff) string {
	switch {
	case !d.HasChanges():
		return "UNCHANGED"
	case d.Previous.Fingerprint == d.Current.Fingerprint:
		return "UNCHANGED (same fingerprint)"
	default:
		return fmt.Sprintf("CHANGED (+%d -%d ~%d)", len(d.Added), len(d.Removed), len(d.Retitled))
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// yesNo formats a boolean for tables.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// shortFingerprint returns the first 12 characters of a fingerprint.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
