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
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/config"
	"github.com/cardinalhq/astrovisio/internal/debugging"
	"github.com/cardinalhq/astrovisio/internal/helpers"
	"github.com/cardinalhq/astrovisio/internal/idgen"
)

var (
	commonAttributes attribute.Set

	meter = otel.Meter("github.com/cardinalhq/astrovisio")

	myInstanceID int64

	commandDuration metric.Float64Histogram
)

// setupTelemetry configures logging and, when enabled, OpenTelemetry export
// for one command. Logs go to stderr so stdout stays clean for command
// output. The returned context ends on SIGINT or SIGTERM.
func setupTelemetry(command string) (context.Context, func() error, error) {
	myInstanceID = idgen.DefaultFlakeGenerator.NextID()

	doneCtx, doneCancel := handleSignals(context.Background())

	f := func() error {
		doneCancel()
		return nil
	}

	commonAttributes = attribute.NewSet(
		attribute.Int64("instanceID", myInstanceID),
		attribute.String("command", command),
	)
	setupGlobalMetrics()

	var opts *slog.HandlerOptions
	if helpers.AnyBoolEnv("DEBUG", "ASTROVISIO_DEBUG") {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	if os.Getenv("OTEL_SERVICE_NAME") != "" && helpers.GetBoolEnv("ENABLE_OTLP_TELEMETRY", false) {
		slog.SetDefault(slog.New(slogmulti.Fanout(
			slog.NewTextHandler(os.Stderr, opts),
			otelslog.NewHandler(config.ServiceName),
		)).With(
			slog.String("service", config.ServiceName),
			slog.Int64("instanceID", myInstanceID),
		))
		slog.Info("OpenTelemetry exporting enabled")

		otelShutdown, err := telemetry.SetupOTelSDK(doneCtx)
		if err != nil {
			doneCancel()
			return context.Background(), nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
		}

		if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
			slog.Warn("failed to start runtime metrics", "error", err.Error())
		}
		if err := host.Start(); err != nil {
			slog.Warn("failed to start host metrics", "error", err.Error())
		}

		f = func() error {
			defer doneCancel()
			slog.Debug("Shutting down OpenTelemetry SDK")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return otelShutdown(ctx)
		}
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)).With(
			slog.String("service", config.ServiceName),
			slog.Int64("instanceID", myInstanceID),
		))
	}

	debugging.RunPprof(doneCtx, pprofPort)
	return doneCtx, f, nil
}

func setupGlobalMetrics() {
	m, err := meter.Float64Histogram(
		"astrovisio.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds of a command run"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create command.duration histogram: %w", err))
	}
	commandDuration = m
}

// runCommand wraps a command body with telemetry setup, shutdown and a
// duration measurement.
func runCommand(command string, body func(ctx context.Context) error) error {
	ctx, shutdown, err := setupTelemetry(command)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	start := time.Now()
	err = body(ctx)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	commandDuration.Record(context.Background(), time.Since(start).Seconds(),
		metric.WithAttributeSet(commonAttributes),
		metric.WithAttributes(attribute.String("outcome", outcome)))
	return err
}
