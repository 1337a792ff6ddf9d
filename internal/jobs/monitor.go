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

package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Monitor periodically logs the progress of every unfinished job until the
// returned cancel function is called or ctx ends.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	if interval <= 0 {
		return cancel
	}
	go m.monitor(ctx, interval)
	return cancel
}

func (m *Manager) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logActive()
		}
	}
}

func (m *Manager) logActive() {
	for _, j := range m.Active() {
		slog.Info("Job progress",
			slog.String("jobID", j.ID),
			slog.String("file", j.Path),
			slog.String("status", string(j.Status)),
			slog.Float64("progress", j.Progress),
			slog.Duration("elapsed", time.Since(j.Started)))
	}
}
