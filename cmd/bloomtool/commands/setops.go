package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droberson/archbloom"
)

func loadPair(a, b string) (*archbloom.Filter, *archbloom.Filter, error) {
	fa, err := archbloom.LoadFilter(a)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", a, err)
	}
	fb, err := archbloom.LoadFilter(b)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", b, err)
	}
	return fa, fb, nil
}

func (a *app) combineCmd(use, short string, op func(x, y *archbloom.Filter) (*archbloom.Filter, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " A B OUT",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			fa, fb, err := loadPair(args[0], args[1])
			if err != nil {
				return err
			}
			out, err := op(fa, fb)
			if err != nil {
				return fmt.Errorf("%s %s and %s: %w", use, args[0], args[1], err)
			}
			a.log.Info().
				Str("a", args[0]).
				Str("b", args[1]).
				Str("out", args[2]).
				Uint64("insertions", out.Insertions()).
				Msg(use)
			return out.Save(args[2])
		},
	}
}

func (a *app) mergeCmd() *cobra.Command {
	return a.combineCmd("merge", "Write the union of two identically sized filters", archbloom.Merge)
}

func (a *app) intersectCmd() *cobra.Command {
	return a.combineCmd("intersect", "Write the intersection of two identically sized filters", archbloom.Intersect)
}

func (a *app) intersectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intersection A B",
		Short: "Estimate how much two identically sized filters overlap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fa, fb, err := loadPair(args[0], args[1])
			if err != nil {
				return err
			}
			pct, err := archbloom.EstimateIntersection(fa, fb)
			if err != nil {
				return fmt.Errorf("intersection of %s and %s: %w", args[0], args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "intersection of %s and %s: %.2f%%\n", args[0], args[1], pct)
			return nil
		},
	}
}
