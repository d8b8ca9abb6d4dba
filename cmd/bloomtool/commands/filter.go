package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/droberson/archbloom"
)

func (a *app) createCmd() *cobra.Command {
	var (
		input    string
		name     string
		expected string
		accuracy float64
	)

	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Create a filter from lines of input",
		Long: `Create a new filter sized for --expected elements at --accuracy false
positive rate, add every line read from --input (stdin by default), and
save it to FILE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cmd.Flags().Changed("expected") {
				cfg.Expected = expected
			}
			if cmd.Flags().Changed("accuracy") {
				cfg.Accuracy = accuracy
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			n, err := cfg.ExpectedCount()
			if err != nil {
				return err
			}

			opts := []archbloom.Option{}
			if name != "" {
				opts = append(opts, archbloom.WithName(name))
			}
			f, err := archbloom.New(n, cfg.Accuracy, opts...)
			if err != nil {
				return fmt.Errorf("create filter: %w", err)
			}

			added, err := readLines(cmd.InOrStdin(), input, f.AddString)
			if err != nil {
				return err
			}
			a.log.Info().
				Str("file", args[0]).
				Uint64("expected", n).
				Int("lines", added).
				Msg("created filter")
			return f.Save(args[0])
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "file to read elements from, one per line")
	cmd.Flags().StringVarP(&name, "name", "n", "", "filter name")
	cmd.Flags().StringVarP(&expected, "expected", "e", DefaultExpected, "expected number of elements")
	cmd.Flags().Float64VarP(&accuracy, "accuracy", "a", DefaultAccuracy, "target false positive rate")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "add FILE [ELEMENT]",
		Short: "Add an element, or lines of input, to a filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := archbloom.LoadFilter(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			if len(args) == 2 {
				f.AddString(args[1])
				a.log.Debug().Str("element", args[1]).Msg("added element")
			} else {
				added, err := readLines(cmd.InOrStdin(), input, f.AddString)
				if err != nil {
					return err
				}
				a.log.Info().Str("file", args[0]).Int("lines", added).Msg("added elements")
			}

			if f.Insertions() > f.Expected() {
				a.log.Warn().
					Uint64("insertions", f.Insertions()).
					Uint64("expected", f.Expected()).
					Msg("filter holds more elements than it was sized for")
			}
			return f.Save(args[0])
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "file to read elements from, one per line")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "query FILE ELEMENT",
		Aliases: []string{"lookup"},
		Short:   "Exit 0 if ELEMENT might be in the filter, 1 otherwise",
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := archbloom.LoadFilter(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			if !f.LookupString(args[1]) {
				a.log.Debug().Str("element", args[1]).Msg("not found")
				return ErrNotFound
			}
			a.log.Debug().Str("element", args[1]).Msg("found")
			return nil
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename FILE NAME",
		Short: "Change the name stored in a filter file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := archbloom.LoadFilter(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			old := f.Name()
			if err := f.SetName(args[1]); err != nil {
				return err
			}
			a.log.Info().Str("from", old).Str("to", args[1]).Msg("renamed filter")
			return f.Save(args[0])
		},
	}
}

// readLines calls fn for every line of path, or of stdin when path is "-".
func readLines(stdin io.Reader, path string, fn func(string)) (int, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer file.Close()
		r = file
	}

	n := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		fn(sc.Text())
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}
