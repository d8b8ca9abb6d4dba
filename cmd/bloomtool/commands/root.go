// Package commands implements the bloomtool command tree.
package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// ErrNotFound is returned by query when the element is not in the filter.
// main turns it into exit status 1 without printing anything.
var ErrNotFound = errors.New("element not found")

type app struct {
	configPath string
	verbose    bool

	cfg *Config
	log zerolog.Logger
}

// NewRootCommand builds the bloomtool command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "bloomtool",
		Short: "Create, query and combine bloom filter files",
		Long: `bloomtool manipulates plain bloom filters stored on disk.

Filters are sized from an expected element count and a target false
positive rate, both of which default from .bloomtool.yaml (in the current
directory or $HOME) or BLOOMTOOL_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default .bloomtool.yaml in . or $HOME)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		a.createCmd(),
		a.addCmd(),
		a.queryCmd(),
		a.infoCmd(),
		a.renameCmd(),
		a.mergeCmd(),
		a.intersectCmd(),
		a.intersectionCmd(),
		versionCmd(version),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	level := zerolog.InfoLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug().
		Str("expected", cfg.Expected).
		Float64("accuracy", cfg.Accuracy).
		Str("format", cfg.Format).
		Msg("loaded config")
	return nil
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bloomtool %s\n", version)
		},
	}
}
