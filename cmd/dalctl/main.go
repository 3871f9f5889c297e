// Command dalctl inspects and authors LOFAR data products.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-lofar-dal/dal"
)

// app carries the global flags and the configuration shared by all
// subcommands.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg *Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dalctl",
		Short:         "Inspect and author LOFAR HDF5 data products",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides the configuration)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newInspectCmd(a),
		newReadCmd(a),
		newCreateCmd(a),
		newSchemaCmd(a),
		newFilenameCmd(a),
	)
	return root
}

// setup loads the configuration and wires logging and colour before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.noColor {
		cfg.Color = "never"
	}
	a.cfg = cfg

	a.log, err = newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	dal.SetLogger(a.log)

	switch cfg.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		f, ok := cmd.OutOrStdout().(*os.File)
		color.NoColor = !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		bailf("dalctl: %v", err)
	}
}

func bailf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
