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
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/astrovisio/internal/stats"
)

func init() {
	var family string
	cmd := &cobra.Command{
		Use:   "discover <file>",
		Short: "Print per-variable ranges and histograms of a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand("discover", func(ctx context.Context) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				res, err := stats.Discover(ctx, args[0], statsOptions(cfg, family))
				if err != nil {
					return err
				}
				return writeJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "Particle family to describe (default: first in file)")
	rootCmd.AddCommand(cmd)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
