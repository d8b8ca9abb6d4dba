package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/droberson/archbloom"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// filterInfo is the machine readable form of the info command.
type filterInfo struct {
	Name              string  `json:"name"                yaml:"name"`
	Hash              string  `json:"hash"                yaml:"hash"`
	Slots             uint64  `json:"slots"               yaml:"slots"`
	Hashes            uint64  `json:"hashes"              yaml:"hashes"`
	SizeBytes         uint64  `json:"size_bytes"          yaml:"size_bytes"`
	Expected          uint64  `json:"expected"            yaml:"expected"`
	ErrorRate         float64 `json:"error_rate"          yaml:"error_rate"`
	Insertions        uint64  `json:"insertions"          yaml:"insertions"`
	Capacity          float64 `json:"capacity_percent"    yaml:"capacity_percent"`
	Saturation        float64 `json:"saturation_percent"  yaml:"saturation_percent"`
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate"`
}

func newFilterInfo(f *archbloom.Filter) filterInfo {
	return filterInfo{
		Name:              f.Name(),
		Hash:              f.Hash().String(),
		Slots:             f.Slots(),
		Hashes:            f.Hashes(),
		SizeBytes:         f.Size(),
		Expected:          f.Expected(),
		ErrorRate:         f.ErrorRate(),
		Insertions:        f.Insertions(),
		Capacity:          f.Capacity(),
		Saturation:        f.Saturation(),
		FalsePositiveRate: f.EstimateFalsePositiveRate(),
	}
}

func (a *app) infoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Show a filter's parameters and fill statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Format
			}
			f, err := archbloom.LoadFilter(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			return writeInfo(cmd.OutOrStdout(), newFilterInfo(f), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", DefaultFormat, "output format: text, json or yaml")
	return cmd
}

func writeInfo(w io.Writer, info filterInfo, format string) (err error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer func() { err = errors.Join(err, enc.Close()) }()
		return enc.Encode(info)
	case formatText:
		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.AppendRows([]table.Row{
			{"name", info.Name},
			{"hash", info.Hash},
			{"slots", humanize.Comma(int64(info.Slots))},
			{"hashes", info.Hashes},
			{"size", humanize.IBytes(info.SizeBytes)},
			{"expected", humanize.Comma(int64(info.Expected))},
			{"error rate", fmt.Sprintf("%g%%", info.ErrorRate*100)},
			{"insertions", humanize.Comma(int64(info.Insertions))},
			{"capacity", fmt.Sprintf("%.2f%%", info.Capacity)},
			{"saturation", fmt.Sprintf("%.2f%%", info.Saturation)},
			{"est. false positives", fmt.Sprintf("%.4f%%", info.FalsePositiveRate*100)},
		})
		tbl.Render()
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
