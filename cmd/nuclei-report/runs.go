package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sloppy/nucleireport/internal/config"
	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/export"
)

func newRunsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the report archive",
	}
	cmd.PersistentFlags().String("db", "", "SQLite archive")
	cmd.PersistentFlags().String("locale", "", "table header language: en or zh (default en)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, _, err := c.openArchive(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			runs, err := database.ListRuns()
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.out, "no runs archived")
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tMODE\tINVENTORY\tSCAN\tFINDINGS\tFAILED LINES")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					run.ID,
					run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					run.Mode,
					run.InventoryPath,
					run.ScanPath,
					humanize.Comma(int64(run.Findings)),
					run.FailedLines,
				)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, settings, err := c.openArchive(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			run, rep, found, err := database.LoadReport(args[0])
			if err != nil {
				return fmt.Errorf("load run: %w", err)
			}
			if !found {
				return fmt.Errorf("run %s not found", args[0])
			}
			return export.WriteText(c.out, rep, export.Options{Locale: settings.Locale, Meta: runMeta(run)})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := c.openArchive(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.DeleteRun(args[0]); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("run %s not found", args[0])
				}
				return fmt.Errorf("delete run: %w", err)
			}
			fmt.Fprintf(c.out, "deleted run %s\n", args[0])
			return nil
		},
	})
	return cmd
}

// openArchive opens the archive named by --db or the db config key. Unlike
// generate, it never falls back to a default path.
func (c *cli) openArchive(cmd *cobra.Command) (*db.DB, config.Settings, error) {
	settings, err := c.settings(cmd)
	if err != nil {
		return nil, config.Settings{}, err
	}
	if settings.DB == "" {
		return nil, config.Settings{}, errors.New("no archive given; pass --db or set db in the config")
	}
	if _, err := os.Stat(settings.DB); err != nil {
		return nil, config.Settings{}, fmt.Errorf("archive %s: %w", settings.DB, err)
	}
	database, err := db.Open(settings.DB)
	if err != nil {
		return nil, config.Settings{}, fmt.Errorf("open archive: %w", err)
	}
	return database, settings, nil
}

func runMeta(run db.Run) export.Meta {
	return export.Meta{
		RunID:         run.ID,
		InventoryPath: run.InventoryPath,
		ScanPath:      run.ScanPath,
		GeneratedAt:   run.CreatedAt,
		Lines:         run.Lines,
		StrictLines:   run.StrictLines,
		FallbackLines: run.FallbackLines,
		FailedLines:   run.FailedLines,
	}
}
