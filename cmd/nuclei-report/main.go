package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sloppy/nucleireport/internal/config"
	"github.com/sloppy/nucleireport/internal/logging"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// errPairsFailed is returned by generate after it has already reported which
// pairs failed.
var errPairsFailed = errors.New("one or more pairs failed")

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errPairsFailed) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

// cli carries the writers and global flags shared by every subcommand.
type cli struct {
	out        io.Writer
	errOut     io.Writer
	configFile string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "nuclei-report",
		Short:         "Turn nuclei scan output into per-subject vulnerability reports",
		Long:          "nuclei-report matches nuclei findings against a device or target inventory and writes summary and vulnerability tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (default ./nuclei-report.yaml when present)")
	pf.String("log-level", "", "log level: debug, info, warn, error (default info)")
	pf.String("log-format", "", "log format: text or json (default text)")

	root.AddCommand(
		newGenerateCmd(c),
		newParseCmd(c),
		newRunsCmd(c),
		newServeCmd(c),
		newVersionCmd(c),
	)
	return root
}

// flagKeys maps config keys to the flag names that override them. A command
// only binds the flags it defines.
var flagKeys = map[string]string{
	config.KeyMode:      "mode",
	config.KeyWorkers:   "workers",
	config.KeyOutput:    "output",
	config.KeyFormat:    "format",
	config.KeyLocale:    "locale",
	config.KeyDB:        "db",
	config.KeyLogLevel:  "log-level",
	config.KeyLogFormat: "log-format",
	config.KeyServeAddr: "addr",
}

// settings resolves configuration for cmd: defaults, then the config file,
// then NUCLEI_REPORT_* variables, then flags set on the command line.
func (c *cli) settings(cmd *cobra.Command) (config.Settings, error) {
	v, err := config.New(c.configFile)
	if err != nil {
		return config.Settings{}, err
	}
	for key, name := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		// Unset flags are left unbound so they never shadow file or env values.
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return config.Settings{}, fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return config.Resolve(v)
}

func (c *cli) logger(s config.Settings) (*logrus.Logger, error) {
	return logging.New(logging.Options{Level: s.LogLevel, Format: s.LogFormat, Out: c.errOut})
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(c.out, "nuclei-report %s\n", Version)
		},
	}
}
