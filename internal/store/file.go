package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

const jobFileExt = ".json"

// File stores each job as <dir>/<id>.json, replaced atomically on every
// transition. It assumes a single writing process.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure job dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", jobs.ErrNotFound
	}
	return filepath.Join(f.dir, id+jobFileExt), nil
}

func (f *File) read(p string) (*jobs.Job, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, jobs.ErrNotFound
		}
		return nil, fmt.Errorf("read job: %w", err)
	}
	var j jobs.Job
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", filepath.Base(p), err)
	}
	return &j, nil
}

func (f *File) write(p string, j *jobs.Job) error {
	data, err := utils.PrettyJSON(j)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(p, data)
}

func (f *File) Create(_ context.Context, j *jobs.Job) error {
	p, err := f.path(j.ID)
	if err != nil {
		return fmt.Errorf("invalid job id %q", j.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%w: %s", jobs.ErrDuplicate, j.ID)
	}
	return f.write(p, j)
}

func (f *File) Get(_ context.Context, id string) (*jobs.Job, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, err
	}
	return f.read(p)
}

func (f *File) ListByUser(_ context.Context, userID string, limit int) ([]*jobs.Job, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var out []*jobs.Job
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != jobFileExt {
			continue
		}
		j, err := f.read(filepath.Join(f.dir, e.Name()))
		if err != nil {
			// a job removed between ReadDir and read
			if errors.Is(err, jobs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return newestFirst(out, limit), nil
}

func (f *File) update(id string, fn func(*jobs.Job) error) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	j, err := f.read(p)
	if err != nil {
		return err
	}
	if err := fn(j); err != nil {
		return err
	}
	return f.write(p, j)
}

func (f *File) MarkProcessing(_ context.Context, id string) error {
	return f.update(id, (*jobs.Job).Start)
}

func (f *File) Complete(_ context.Context, id string, res *pipeline.Result, at time.Time) error {
	return f.update(id, func(j *jobs.Job) error { return j.Complete(res, at) })
}

func (f *File) Fail(_ context.Context, id string, msg string) error {
	return f.update(id, func(j *jobs.Job) error { return j.Fail(msg) })
}
