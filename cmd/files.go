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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/astrovisio/internal/astrofile"
	"github.com/cardinalhq/astrovisio/internal/catalog"
	"github.com/cardinalhq/astrovisio/internal/helpers"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "families <file>",
		Short: "List the particle families in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand("families", func(context.Context) error {
				families, err := astrofile.Families(args[0])
				if err != nil {
					return err
				}
				for _, f := range families {
					fmt.Println(f)
				}
				return nil
			})
		},
	})

	var family string
	keysCmd := &cobra.Command{
		Use:   "keys <file>",
		Short: "List the loadable keys of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand("keys", func(context.Context) error {
				keys, err := astrofile.Keys(args[0], family)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Println(k)
				}
				return nil
			})
		},
	}
	keysCmd.Flags().StringVar(&family, "family", "", "Particle family (default: first in file)")
	rootCmd.AddCommand(keysCmd)

	var inspectFamily, configDir string
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Validate files for registration and print their descriptions as JSON",
		Long: `Checks that the files share one supported type and exist, then prints each
file's size, point count and variables.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand("inspect", func(ctx context.Context) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				cache := newStatsCache(cfg, inspectFamily)
				defer cache.Stop()

				infos, err := catalog.New(cache, cfg.Catalog.Concurrency).Inspect(ctx, args)
				if err != nil {
					return err
				}
				out := make([]catalog.FileInfo, 0, len(args))
				for _, p := range args {
					info := infos[p]
					out = append(out, info)
					if configDir != "" {
						if err := writeDefaultConfig(configDir, info); err != nil {
							return err
						}
					}
				}
				return writeJSON(out)
			})
		},
	}
	inspectCmd.Flags().StringVar(&inspectFamily, "family", "", "Particle family (default: first in file)")
	inspectCmd.Flags().StringVar(&configDir, "write-config", "", "Write a starting variable configuration per file into this directory")
	rootCmd.AddCommand(inspectCmd)
}

// writeDefaultConfig saves the all-unselected configuration for info as
// <dir>/<file base name>.yaml.
func writeDefaultConfig(dir string, info catalog.FileInfo) error {
	data, err := yaml.Marshal(catalog.DefaultConfig(info))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, helpers.BaseName(info.Path)+".yaml")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	slog.Info("Wrote variable configuration", slog.String("path", dest))
	return nil
}
