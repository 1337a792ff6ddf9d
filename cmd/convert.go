// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/astrovisio/internal/convert"
	"github.com/cardinalhq/astrovisio/internal/progress"
	"github.com/cardinalhq/astrovisio/internal/resultwriter"
)

func init() {
	var input, configPath, output, format string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one file into a filtered table",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCommand("convert", func(ctx context.Context) error {
				return runConvert(ctx, input, configPath, output, format)
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "HDF5 snapshot or FITS cube to convert")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Variable configuration (YAML)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Result file to write")
	cmd.Flags().StringVar(&format, "format", "", "Output format: msgpack, parquet or arrow (default from configuration)")
	for _, name := range []string{"input", "output"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(cmd)
}

func runConvert(ctx context.Context, input, configPath, output, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vcfg, err := loadVariableConfig(configPath)
	if err != nil {
		return err
	}
	if vcfg == nil {
		slog.Debug("No variable configuration given; cubes keep every voxel and snapshots select nothing")
	}
	outOpts, err := outputOptions(cfg, format)
	if err != nil {
		return err
	}

	report := progress.Rounded(func(f float64) {
		slog.Info("Progress", slog.String("file", input), slog.Float64("fraction", f))
	}, 1)
	t, err := convert.Convert(ctx, input, vcfg, convertOptions(cfg), report)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("Conversion interrupted")
		}
		return err
	}
	defer t.Release()

	return resultwriter.WriteFile(ctx, output, t, outOpts)
}
