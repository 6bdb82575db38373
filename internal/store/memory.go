// Package store provides jobs.Store implementations: in-process memory, one
// JSON file per job, and SQL via sqlx on postgres or sqlite.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
)

// Memory keeps jobs in a map. Jobs are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.Job
}

func NewMemory() *Memory {
	return &Memory{jobs: map[string]*jobs.Job{}}
}

func (m *Memory) Create(_ context.Context, j *jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return fmt.Errorf("%w: %s", jobs.ErrDuplicate, j.ID)
	}
	m.jobs[j.ID] = j.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return j.Clone(), nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int) ([]*jobs.Job, error) {
	m.mu.RLock()
	var out []*jobs.Job
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, j.Clone())
		}
	}
	m.mu.RUnlock()
	return newestFirst(out, limit), nil
}

func (m *Memory) update(id string, fn func(*jobs.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[id]
	if !ok {
		return jobs.ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	m.jobs[id] = next
	return nil
}

func (m *Memory) MarkProcessing(_ context.Context, id string) error {
	return m.update(id, (*jobs.Job).Start)
}

func (m *Memory) Complete(_ context.Context, id string, res *pipeline.Result, at time.Time) error {
	return m.update(id, func(j *jobs.Job) error { return j.Complete(res, at) })
}

func (m *Memory) Fail(_ context.Context, id string, msg string) error {
	return m.update(id, func(j *jobs.Job) error { return j.Fail(msg) })
}

// newestFirst sorts by upload time, newest first, and applies limit when > 0.
func newestFirst(js []*jobs.Job, limit int) []*jobs.Job {
	sort.SliceStable(js, func(a, b int) bool {
		if !js[a].UploadedAt.Equal(js[b].UploadedAt) {
			return js[a].UploadedAt.After(js[b].UploadedAt)
		}
		return js[a].ID < js[b].ID
	})
	if limit > 0 && len(js) > limit {
		js = js[:limit]
	}
	return js
}
