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

package debugging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
)

// PprofPortEnv overrides the port passed to RunPprof when set.
const PprofPortEnv = "ASTROVISIO_PPROF_PORT"

// RunPprof serves net/http/pprof on port until ctx ends. A port of zero or
// less disables it.
func RunPprof(ctx context.Context, port int) {
	port = pprofPort(port)
	if port <= 0 {
		return
	}

	addr := fmt.Sprintf("localhost:%d", port)
	server := &http.Server{Addr: addr}

	go func() {
		slog.Info("Starting pprof server", slog.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Pprof server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down pprof server", slog.Any("error", err))
		}
	}()
}

func pprofPort(flagPort int) int {
	envPort := os.Getenv(PprofPortEnv)
	if envPort == "" {
		return flagPort
	}
	if envPort == "false" || envPort == "off" {
		return 0
	}
	port, err := strconv.Atoi(envPort)
	if err != nil {
		slog.Warn("Invalid pprof port, ignoring", slog.String("env", PprofPortEnv), slog.String("value", envPort))
		return flagPort
	}
	return port
}
