package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sloppy/nucleireport/internal/importer"
)

type parsedFinding struct {
	Line      int    `json:"line"`
	Grammar   string `json:"grammar"`
	Template  string `json:"template"`
	Protocol  string `json:"protocol"`
	Severity  string `json:"severity"`
	Target    string `json:"target"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

type parsedDiagnostic struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

type parseOutput struct {
	File        string              `json:"file"`
	Encoding    string              `json:"encoding"`
	Stats       importer.ParseStats `json:"stats"`
	Findings    []parsedFinding     `json:"findings"`
	Diagnostics []parsedDiagnostic  `json:"diagnostics"`
}

func newParseCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <scan-file>",
		Short: "Show how each line of a nuclei output file is parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := importer.ParseFile(args[0])
			if err != nil {
				return err
			}
			doc := toParseOutput(args[0], res)
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			return writeParseText(c, doc)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func toParseOutput(path string, res importer.ScanResult) parseOutput {
	doc := parseOutput{
		File:        path,
		Encoding:    string(res.Encoding),
		Stats:       res.Stats,
		Findings:    make([]parsedFinding, 0, len(res.Findings)),
		Diagnostics: make([]parsedDiagnostic, 0, len(res.Diagnostics)),
	}
	for _, f := range res.Findings {
		doc.Findings = append(doc.Findings, parsedFinding{
			Line:      f.SourceLine,
			Grammar:   string(f.Grammar),
			Template:  f.Template,
			Protocol:  f.Protocol,
			Severity:  f.Severity,
			Target:    f.Target,
			ExtraInfo: f.ExtraInfo,
		})
	}
	for _, d := range res.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, parsedDiagnostic{Line: d.Line, Reason: d.Reason, Text: d.Text})
	}
	return doc
}

func writeParseText(c *cli, doc parseOutput) error {
	s := doc.Stats
	fmt.Fprintf(c.out, "%s (%s): %d lines, %d strict, %d fallback, %d failed, %d skipped\n",
		doc.File, doc.Encoding, s.Lines, s.Strict, s.Fallback, s.Failed, s.Skipped)
	if len(doc.Findings) > 0 {
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LINE\tGRAMMAR\tSEVERITY\tTEMPLATE\tPROTOCOL\tTARGET\tEXTRA")
		for _, f := range doc.Findings {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", f.Line, f.Grammar, f.Severity, f.Template, f.Protocol, f.Target, f.ExtraInfo)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	for _, d := range doc.Diagnostics {
		fmt.Fprintf(c.out, "line %d: %s: %s\n", d.Line, d.Reason, d.Text)
	}
	return nil
}
