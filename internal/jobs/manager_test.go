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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/astrovisio/internal/convert"
	"github.com/cardinalhq/astrovisio/internal/progress"
	"github.com/cardinalhq/astrovisio/internal/resultwriter"
	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/variable"
	"github.com/cardinalhq/astrovisio/testhelpers"
)

func smallTable() (*table.Table, error) {
	return table.New(table.FromSlice[float32]("rho", []float32{1, 2, 3}))
}

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(Config{OutputDir: t.TempDir()}, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func waitDone(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	j, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return j
}

func TestJobSucceeds(t *testing.T) {
	m := newManager(t, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		report.Report(0.333)
		report.Report(0.5)
		return smallTable()
	}))

	id, err := m.Start(context.Background(), Request{ProjectID: 1, FileID: 7, Path: "snap.hdf5"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	j := waitDone(t, m, id)
	assert.Equal(t, StatusDone, j.Status)
	assert.Equal(t, 1.0, j.Progress)
	assert.Equal(t, 3, j.Rows)
	assert.Empty(t, j.Error)
	assert.Equal(t, "project_1_file_7_processed.msgpack", filepath.Base(j.ResultPath))
	assert.FileExists(t, j.ResultPath)

	path, ok := m.ResultPath(id)
	assert.True(t, ok)
	assert.Equal(t, j.ResultPath, path)

	status, frac, msg, err := m.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status)
	assert.Equal(t, 1.0, frac)
	assert.Empty(t, msg)
}

func TestJobProgressIsRounded(t *testing.T) {
	seen := make(chan float64, 1)
	release := make(chan struct{})
	var m *Manager
	m = newManager(t, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		report.Report(0.3333)
		j := m.Active()
		seen <- j[0].Progress
		<-release
		return smallTable()
	}))

	id, err := m.Start(context.Background(), Request{FileID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.33, <-seen)

	j, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, j.Status)
	close(release)
	waitDone(t, m, id)
}

func TestJobFailure(t *testing.T) {
	m := newManager(t, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		return nil, errors.New("cannot open snap.hdf5")
	}))

	id, err := m.Start(context.Background(), Request{FileID: 2})
	require.NoError(t, err)
	j := waitDone(t, m, id)
	assert.Equal(t, StatusError, j.Status)
	assert.Equal(t, 1.0, j.Progress)
	assert.Contains(t, j.Error, "cannot open")

	_, ok := m.ResultPath(id)
	assert.False(t, ok)
}

func TestOneJobPerFile(t *testing.T) {
	release := make(chan struct{})
	m := newManager(t, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		<-release
		return smallTable()
	}))

	id, err := m.Start(context.Background(), Request{ProjectID: 1, FileID: 3})
	require.NoError(t, err)

	_, err = m.Start(context.Background(), Request{ProjectID: 1, FileID: 3})
	assert.ErrorIs(t, err, ErrJobInFlight)
	assert.ErrorIs(t, m.Invalidate(1, 3), ErrJobInFlight)

	other, err := m.Start(context.Background(), Request{ProjectID: 2, FileID: 3})
	require.NoError(t, err)

	close(release)
	waitDone(t, m, id)
	waitDone(t, m, other)

	again, err := m.Start(context.Background(), Request{ProjectID: 1, FileID: 3})
	require.NoError(t, err)
	waitDone(t, m, again)
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	m := newManager(t)
	_, err := m.Start(context.Background(), Request{FileID: 1, Config: &variable.Config{Downsampling: 2}})
	assert.Error(t, err)
	assert.Empty(t, m.Active())
}

func TestUnknownJob(t *testing.T) {
	m := newManager(t)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = m.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestInvalidate(t *testing.T) {
	m := newManager(t, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		return smallTable()
	}))
	id, err := m.Start(context.Background(), Request{ProjectID: 4, FileID: 5})
	require.NoError(t, err)
	j := waitDone(t, m, id)
	require.FileExists(t, j.ResultPath)

	require.NoError(t, m.Invalidate(4, 5))
	_, err = os.Stat(j.ResultPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, m.Invalidate(4, 5))
}

func TestCloseCancelsJobs(t *testing.T) {
	started := make(chan struct{})
	m, err := NewManager(Config{OutputDir: t.TempDir()}, WithConvert(func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	require.NoError(t, err)

	id, err := m.Start(context.Background(), Request{FileID: 1})
	require.NoError(t, err)
	<-started
	m.Close()

	j, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusError, j.Status)
	assert.Contains(t, j.Error, context.Canceled.Error())

	_, err = m.Start(context.Background(), Request{FileID: 2})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestJobConvertsCube(t *testing.T) {
	p := testhelpers.WriteCube(t, "cube.fits", testhelpers.Cube{
		Axes: []int{2, 2, 2},
		Data: []float32{0, 1, 2, 0, 3, 0, 4, 5},
	})
	m, err := NewManager(Config{
		OutputDir: t.TempDir(),
		Output:    resultwriter.Options{Format: resultwriter.FormatParquet},
	})
	require.NoError(t, err)
	defer m.Close()

	id, err := m.Start(context.Background(), Request{ProjectID: 1, FileID: 9, Path: p})
	require.NoError(t, err)
	j := waitDone(t, m, id)
	require.Equal(t, StatusDone, j.Status, j.Error)
	assert.Equal(t, 5, j.Rows)
	assert.Equal(t, "project_1_file_9_processed.parquet", filepath.Base(j.ResultPath))
}
