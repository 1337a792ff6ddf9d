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

// Package jobs runs file conversions in the background and tracks their
// status, progress and output.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/internal/convert"
	"github.com/cardinalhq/astrovisio/internal/idgen"
	"github.com/cardinalhq/astrovisio/internal/progress"
	"github.com/cardinalhq/astrovisio/internal/resultwriter"
	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

var (
	ErrJobInFlight = errors.New("a job for this file is already running")
	ErrJobNotFound = errors.New("job not found")
	ErrClosed      = errors.New("job manager closed")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Finished reports whether the job will not change again.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusError
}

// Request names one file to convert.
type Request struct {
	ProjectID int64
	FileID    int64
	Path      string
	Config    *variable.Config
}

// Job is a snapshot of a job's state.
type Job struct {
	ID         string    `json:"id"`
	ProjectID  int64     `json:"project_id"`
	FileID     int64     `json:"file_id"`
	Path       string    `json:"path"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	ResultPath string    `json:"result_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	Rows       int       `json:"rows"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
}

// ConvertFunc produces the table for a request.
type ConvertFunc func(ctx context.Context, path string, cfg *variable.Config, opts convert.Options, report progress.Func) (*table.Table, error)

// Config controls where and how results are written.
type Config struct {
	OutputDir string
	Output    resultwriter.Options
	Convert   convert.Options
}

type Option func(*Manager)

// WithConvert replaces the conversion step.
func WithConvert(fn ConvertFunc) Option {
	return func(m *Manager) { m.convert = fn }
}

// WithIDGenerator replaces the job id source.
func WithIDGenerator(g idgen.IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

type fileKey struct {
	project, file int64
}

type entry struct {
	job  Job
	done chan struct{}
}

// Manager owns background conversion jobs. Jobs run detached from the
// caller's context; Close cancels them.
type Manager struct {
	cfg     Config
	ids     idgen.IDGenerator
	convert ConvertFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	jobs     map[string]*entry
	inflight map[fileKey]string
}

// NewManager creates the output directory and returns a Manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		ids:      idgen.NewULIDGenerator(),
		convert:  convert.Convert,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     map[string]*entry{},
		inflight: map[fileKey]string{},
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// OutputPath is where the result for a project's file is written.
func (m *Manager) OutputPath(projectID, fileID int64) string {
	return filepath.Join(m.cfg.OutputDir,
		fmt.Sprintf("project_%d_file_%d_processed.%s", projectID, fileID, m.cfg.Output.Extension()))
}

// Start queues req and returns its job id. The configuration is validated
// before anything is queued.
func (m *Manager) Start(ctx context.Context, req Request) (string, error) {
	if err := req.Config.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := fileKey{req.ProjectID, req.FileID}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	if id, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: job %s", ErrJobInFlight, id)
	}
	id := m.ids.Make(time.Now())
	e := &entry{
		job: Job{
			ID:        id,
			ProjectID: req.ProjectID,
			FileID:    req.FileID,
			Path:      req.Path,
			Status:    StatusPending,
			Started:   time.Now(),
		},
		done: make(chan struct{}),
	}
	m.jobs[id] = e
	m.inflight[key] = id
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(e, req)
	return id, nil
}

func (m *Manager) run(e *entry, req Request) {
	defer m.wg.Done()
	ll := slog.Default().With(
		slog.String("jobID", e.job.ID),
		slog.Int64("projectID", req.ProjectID),
		slog.Int64("fileID", req.FileID))

	m.update(e, func(j *Job) { j.Status = StatusProcessing })
	ll.Info("Processing file", slog.String("path", req.Path))

	report := progress.Rounded(func(f float64) {
		m.update(e, func(j *Job) { j.Progress = f })
	}, 2)

	dest := m.OutputPath(req.ProjectID, req.FileID)
	rows, err := m.process(req, dest, report)
	m.finish(e, req, dest, rows, err)

	if err != nil {
		ll.Error("Processing failed", slog.Any("error", err))
		return
	}
	ll.Info("Processing finished", slog.String("result", dest), slog.Int("rows", rows))
}

func (m *Manager) process(req Request, dest string, report progress.Func) (int, error) {
	t, err := m.convert(m.ctx, req.Path, req.Config, m.cfg.Convert, report)
	if err != nil {
		return 0, err
	}
	defer t.Release()
	if err := resultwriter.WriteFile(m.ctx, dest, t, m.cfg.Output); err != nil {
		return 0, err
	}
	return t.NumRows(), nil
}

func (m *Manager) finish(e *entry, req Request, dest string, rows int, err error) {
	m.mu.Lock()
	j := &e.job
	j.Progress = 1
	j.Finished = time.Now()
	if err != nil {
		j.Status = StatusError
		j.Error = err.Error()
	} else {
		j.Status = StatusDone
		j.ResultPath = dest
		j.Rows = rows
	}
	delete(m.inflight, fileKey{req.ProjectID, req.FileID})
	status := j.Status
	elapsed := j.Finished.Sub(j.Started)
	m.mu.Unlock()
	close(e.done)

	jobDuration.Record(context.Background(), elapsed.Seconds(), otelmetric.WithAttributes(
		attribute.String("status", string(status)),
	))
}

func (m *Manager) update(e *entry, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !e.job.Status.Finished() {
		fn(&e.job)
	}
}

// Get returns a snapshot of job id.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

// Progress returns the status, progress and error text of job id.
func (m *Manager) Progress(id string) (Status, float64, string, error) {
	j, err := m.Get(id)
	if err != nil {
		return "", 0, "", err
	}
	return j.Status, j.Progress, j.Error, nil
}

// ResultPath returns the output of job id once it is done.
func (m *Manager) ResultPath(id string) (string, bool) {
	j, err := m.Get(id)
	if err != nil || j.Status != StatusDone {
		return "", false
	}
	return j.ResultPath, true
}

// Wait blocks until job id finishes or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Job{}, ErrJobNotFound
	}
	select {
	case <-e.done:
		return m.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Active returns snapshots of unfinished jobs.
func (m *Manager) Active() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.inflight))
	for _, id := range m.inflight {
		out = append(out, m.jobs[id].job)
	}
	return out
}

// Invalidate removes the stored result for a project's file, used when the
// file's configuration changes. It refuses while a job for the file runs.
func (m *Manager) Invalidate(projectID, fileID int64) error {
	m.mu.Lock()
	id, running := m.inflight[fileKey{projectID, fileID}]
	m.mu.Unlock()
	if running {
		return fmt.Errorf("%w: job %s", ErrJobInFlight, id)
	}
	err := os.Remove(m.OutputPath(projectID, fileID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close cancels running jobs and waits for them to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}
