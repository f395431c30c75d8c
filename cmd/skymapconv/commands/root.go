package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

var versionString = "dev"

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "skymapconv",
		Short: "Convert sky tessellations to compact binary formats",
		Long: `skymapconv converts legacy pickled skymaps into the full-vertex and
ring-optimized binary formats and inspects the results.

The full-vertex format stores every tract vertex explicitly. The
ring-optimized format stores one shape per declination ring plus a rotation
per tract, and only applies when every ring is uniform.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(cmd, logLevel, logFormat)
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	defaultLevel := os.Getenv("LOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = "info"
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level (trace, debug, info, warn, error); defaults to $LOG_LEVEL")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	root.AddCommand(
		newConvertCmd(),
		newInfoCmd(),
		newVerticesCmd(),
		newLocateCmd(),
	)
	return root
}

// configureLogging applies the logging flags to the standard logger.
func configureLogging(cmd *cobra.Command, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(cmd.ErrOrStderr())

	switch strings.ToLower(format) {
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", format)
	}
	return nil
}

// Execute runs the command line and logs any error.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("skymapconv failed")
		return err
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// formatFor returns the format named by flag, or the one implied by the
// file extension (.fv or .ro) when the flag is empty.
func formatFor(path, flag string) (skymap.Format, error) {
	if flag != "" {
		return skymap.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fv":
		return skymap.FormatFullVertex, nil
	case ".ro":
		return skymap.FormatRingOptimized, nil
	default:
		return 0, fmt.Errorf("cannot infer the format of %s: pass --format full-vertex or --format ring-optimized", path)
	}
}
