package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sloppy/nucleireport/internal/batch"
	"github.com/sloppy/nucleireport/internal/config"
	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/inventory"
)

type generateOptions struct {
	inventories []string
	scans       []string
	manifest    string
}

func newGenerateCmd(c *cli) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build reports from inventory and scan pairs",
		Example: "  nuclei-report generate -i devices.txt -s scan.txt -f csv,html\n" +
			"  nuclei-report generate --mode target -i a.txt -s a.log -i b.txt -s b.log\n" +
			"  nuclei-report generate --manifest batch.yaml --db reports.db",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.String("mode", "", "inventory mode: device or target (default device)")
	f.StringArrayVarP(&opts.inventories, "inventory", "i", nil, "inventory file; repeat to pair with each --scan in order")
	f.StringArrayVarP(&opts.scans, "scan", "s", nil, "nuclei output file; repeat to pair with each --inventory in order")
	f.StringVarP(&opts.manifest, "manifest", "m", "", "YAML manifest listing pairs")
	f.StringP("output", "o", "", "output directory (default .)")
	f.StringSliceP("format", "f", nil, "output formats: csv, json, text, html, sqlite (default csv)")
	f.IntP("workers", "w", 0, "pairs processed in parallel (default: CPU count, at most 8)")
	f.String("locale", "", "table header language: en or zh (default en)")
	f.String("db", "", "SQLite archive to store runs in")
	return cmd
}

func (c *cli) runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	settings, err := c.settings(cmd)
	if err != nil {
		return err
	}

	var pairs []batch.Pair
	if opts.manifest != "" {
		m, err := config.LoadManifest(opts.manifest)
		if err != nil {
			return err
		}
		if m.Mode != "" && !cmd.Flags().Changed("mode") {
			settings.Mode = m.Mode
		}
		pairs = append(pairs, m.Pairs...)
	}
	if len(opts.inventories) > 0 || len(opts.scans) > 0 || len(pairs) == 0 {
		flagged, err := batch.Pairs(opts.inventories, opts.scans)
		if err != nil {
			return err
		}
		pairs = append(pairs, flagged...)
	}

	logger, err := c.logger(settings)
	if err != nil {
		return err
	}

	var store *db.DB
	if settings.WantsArchive() {
		path := settings.ArchivePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
		store, err = db.Open(path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
	}

	cache := inventory.NewCache()
	session := batch.NewSession(cache)
	session.Add(pairs...)
	defer session.Clear()

	runner := &batch.Runner{
		Mode:      settings.Mode,
		Workers:   settings.Workers,
		OutputDir: settings.Output,
		Formats:   settings.Formats,
		Locale:    settings.Locale,
		Cache:     cache,
		Store:     store,
		Logger:    logger,
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()
	results := runner.Run(ctx, session.Pairs())

	failed := printResults(c.out, results)
	if failed > 0 {
		return errPairsFailed
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printResults writes one status line per pair plus a closing count and
// returns the number of failed pairs.
func printResults(out io.Writer, results []batch.Result) int {
	okMark := color.New(color.FgGreen, color.Bold)
	failMark := color.New(color.FgRed, color.Bold)
	warn := color.New(color.FgYellow)
	if out != io.Writer(os.Stdout) {
		okMark.DisableColor()
		failMark.DisableColor()
		warn.DisableColor()
	}

	failed := 0
	for _, res := range results {
		label := fmt.Sprintf("[%d/%d] %s + %s", res.Index+1, len(results), filepath.Base(res.Pair.Inventory), filepath.Base(res.Pair.Scan))
		if !res.OK() {
			failed++
			failMark.Fprint(out, "✗ ")
			if errors.Is(res.Err, context.Canceled) {
				fmt.Fprintf(out, "%s: cancelled\n", label)
			} else {
				fmt.Fprintf(out, "%s: %v\n", label, res.Err)
			}
			continue
		}

		okMark.Fprint(out, "✓ ")
		fmt.Fprintf(out, "%s: %d findings, %d subjects, %d vulnerabilities",
			label, res.Report.Totals.Findings, len(res.Report.Summary), len(res.Report.Vulnerabilities))
		if res.RunID != "" {
			fmt.Fprintf(out, " (run %s)", res.RunID)
		}
		fmt.Fprintln(out)
		if res.Scan.Failed > 0 {
			warn.Fprintf(out, "    %d unparsed scan lines\n", res.Scan.Failed)
		}
		for _, w := range res.Report.Warnings {
			warn.Fprintf(out, "    warning: %s\n", w)
		}
		if len(res.Outputs) > 0 {
			fmt.Fprintf(out, "    wrote %s\n", strings.Join(res.Outputs, ", "))
		}
	}

	summary := fmt.Sprintf("%d succeeded, %d failed", len(results)-failed, failed)
	if failed > 0 {
		failMark.Fprintln(out, summary)
	} else {
		okMark.Fprintln(out, summary)
	}
	return failed
}
