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
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/astrovisio/internal/jobs"
)

func init() {
	var (
		configPath string
		format     string
		projectID  int64
		interval   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Convert several files in the background and report their results",
		Long: `Starts one processing job per file, logs progress while they run and
writes each result to the configured output directory as
project_<project>_file_<n>_processed.<ext>, where n is the file's position
on the command line starting at 1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommand("process", func(ctx context.Context) error {
				return runProcess(ctx, args, configPath, format, projectID, interval)
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Variable configuration (YAML) applied to every file")
	cmd.Flags().StringVar(&format, "format", "", "Output format: msgpack, parquet or arrow (default from configuration)")
	cmd.Flags().Int64Var(&projectID, "project", 1, "Project id used in result file names")
	cmd.Flags().DurationVar(&interval, "progress-interval", 5*time.Second, "How often to log job progress (0 disables)")
	rootCmd.AddCommand(cmd)
}

func runProcess(ctx context.Context, files []string, configPath, format string, projectID int64, interval time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vcfg, err := loadVariableConfig(configPath)
	if err != nil {
		return err
	}
	outOpts, err := outputOptions(cfg, format)
	if err != nil {
		return err
	}

	mgr, err := jobs.NewManager(jobs.Config{
		OutputDir: cfg.Output.Dir,
		Output:    outOpts,
		Convert:   convertOptions(cfg),
	})
	if err != nil {
		return err
	}
	defer mgr.Close()
	stopMonitor := mgr.Monitor(ctx, interval)
	defer stopMonitor()

	ids := make([]string, 0, len(files))
	for i, f := range files {
		id, err := mgr.Start(ctx, jobs.Request{
			ProjectID: projectID,
			FileID:    int64(i + 1),
			Path:      f,
			Config:    vcfg,
		})
		if err != nil {
			return fmt.Errorf("start %s: %w", f, err)
		}
		ids = append(ids, id)
	}

	var errs *multierror.Error
	for _, id := range ids {
		j, err := mgr.Wait(ctx, id)
		if err != nil {
			return err
		}
		if j.Status == jobs.StatusError {
			errs = multierror.Append(errs, fmt.Errorf("%s: %s", j.Path, j.Error))
			continue
		}
		slog.Info("Result ready",
			slog.String("file", j.Path),
			slog.String("result", j.ResultPath),
			slog.Int("rows", j.Rows),
			slog.Duration("elapsed", j.Finished.Sub(j.Started)))
	}
	return errs.ErrorOrNil()
}
