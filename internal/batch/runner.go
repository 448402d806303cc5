package batch

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/export"
	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/logging"
	"github.com/sloppy/nucleireport/internal/report"
)

// Runner processes (inventory, scan) pairs into report artifacts.
type Runner struct {
	Mode      inventory.Mode
	Workers   int
	OutputDir string
	Formats   []export.Format
	Locale    string
	Cache     *inventory.Cache
	Store     *db.DB
	Logger    logrus.FieldLogger
}

// Result is the outcome of one pair. Err is set when the pair failed; the
// other fields hold whatever was produced before the failure.
type Result struct {
	Index    int
	Pair     Pair
	Base     string
	Scan     importer.ParseStats
	Encoding string
	Report   report.Report
	Outputs  []string
	RunID    string
	Duration time.Duration
	Err      error
}

// OK reports whether the pair succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// ProcessPair runs one pair to completion. ctx is only checked before the
// pair starts.
func (r *Runner) ProcessPair(ctx context.Context, pair Pair) Result {
	base := export.BaseName(pair.Inventory)
	if err := ctx.Err(); err != nil {
		return Result{Pair: pair, Base: base, Err: err}
	}
	return r.process(0, pair, base)
}

// Run processes pairs with at most Workers running at once. Results are
// returned in input order. A cancelled ctx stops pairs that have not started;
// those results carry ctx.Err(). A failed pair never stops the others.
func (r *Runner) Run(ctx context.Context, pairs []Pair) []Result {
	results := make([]Result, len(pairs))
	bases := uniqueBases(pairs)

	var g errgroup.Group
	g.SetLimit(r.workers())
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Index: i, Pair: pair, Base: bases[i], Err: err}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Index: i, Pair: pair, Base: bases[i], Err: err}
				return nil
			}
			results[i] = r.process(i, pair, bases[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) process(index int, pair Pair, base string) Result {
	start := time.Now()
	res := Result{Index: index, Pair: pair, Base: base}
	log := r.logger().WithFields(logrus.Fields{
		"pair":      index + 1,
		"inventory": pair.Inventory,
		"scan":      pair.Scan,
	})

	inv, err := inventory.Load(r.Mode, pair.Inventory, r.Cache)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		log.WithError(err).Error("load inventory")
		return res
	}
	for _, skipped := range inv.Skipped {
		log.WithFields(logrus.Fields{
			"file":   pair.Inventory,
			"line":   skipped.Line,
			"reason": skipped.Reason,
		}).Debug("skipped inventory line")
	}

	if info, err := os.Stat(pair.Scan); err == nil {
		log.WithField("size", humanize.Bytes(uint64(info.Size()))).Debug("parsing scan output")
	}
	scan, err := importer.ParseFile(pair.Scan)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		log.WithError(err).Error("parse scan output")
		return res
	}
	res.Scan = scan.Stats
	res.Encoding = string(scan.Encoding)
	for _, d := range scan.Diagnostics {
		log.WithFields(logrus.Fields{
			"file":   pair.Scan,
			"line":   d.Line,
			"reason": d.Reason,
		}).Warn("unparsed scan line")
	}

	rep := report.Build(inv, scan.Findings)
	res.Report = rep
	for _, warning := range rep.Warnings {
		log.Warn(warning)
	}

	run := db.NewRun(pair.Inventory, pair.Scan, scan, rep)
	if r.Store != nil {
		saved, err := r.Store.SaveReport(run, rep)
		if err != nil {
			res.Err = fmt.Errorf("archive report: %w", err)
			res.Duration = time.Since(start)
			log.WithError(err).Error("archive report")
			return res
		}
		run = saved
		res.RunID = saved.ID
	}

	if len(r.Formats) > 0 {
		opts := export.Options{Locale: r.Locale, Meta: export.Meta{
			RunID:         res.RunID,
			InventoryPath: pair.Inventory,
			ScanPath:      pair.Scan,
			GeneratedAt:   start,
			Lines:         scan.Stats.Lines,
			StrictLines:   scan.Stats.Strict,
			FallbackLines: scan.Stats.Fallback,
			FailedLines:   scan.Stats.Failed,
		}}
		if !run.CreatedAt.IsZero() {
			opts.Meta.GeneratedAt = run.CreatedAt
		}
		outputs, err := export.WriteFiles(r.outputDir(), base, r.Formats, rep, opts)
		res.Outputs = outputs
		if err != nil {
			res.Err = err
			res.Duration = time.Since(start)
			log.WithError(err).Error("write outputs")
			return res
		}
	}

	res.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"findings":        len(scan.Findings),
		"subjects":        len(rep.Summary),
		"vulnerabilities": len(rep.Vulnerabilities),
		"failed_lines":    scan.Stats.Failed,
		"duration":        res.Duration.Round(time.Millisecond).String(),
	}).Info("pair complete")
	return res
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

func (r *Runner) outputDir() string {
	if r.OutputDir == "" {
		return "."
	}
	return r.OutputDir
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.Discard()
}

// uniqueBases derives artifact base names from inventory names, suffixing
// repeats with their position so pairs sharing an inventory do not overwrite
// each other's files.
func uniqueBases(pairs []Pair) []string {
	counts := make(map[string]int)
	for _, p := range pairs {
		counts[export.BaseName(p.Inventory)]++
	}
	seen := make(map[string]int)
	out := make([]string, len(pairs))
	for i, p := range pairs {
		base := export.BaseName(p.Inventory)
		if counts[base] > 1 {
			seen[base]++
			base += "-" + strconv.Itoa(seen[base])
		}
		out[i] = base
	}
	return out
}
