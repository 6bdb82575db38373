package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bouyassine11/AnalytIQ/internal/insight"
)

// ListLimit caps the number of jobs returned by List.
const ListLimit = 100

// Service creates jobs, runs them in the background and answers queries
// about them.
type Service struct {
	store       Store
	runner      Runner
	gen         insight.Generator
	log         *zap.Logger
	now         func() time.Time
	newID       func() string
	workers     int
	queue       int
	chatTimeout time.Duration

	pool *Pool

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers sets the number of concurrent pipeline runs.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets how many submitted jobs may wait for a worker.
func WithQueueSize(n int) Option { return func(s *Service) { s.queue = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGenerator sets the text generator used by Chat.
func WithGenerator(g insight.Generator) Option { return func(s *Service) { s.gen = g } }

// WithChatTimeout bounds a single chat generator call.
func WithChatTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.chatTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDFunc replaces the uuid job id generator.
func WithIDFunc(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService returns a Service and starts its worker pool. Call Close to
// drain it.
func NewService(store Store, runner Runner, opts ...Option) *Service {
	s := &Service{
		store:       store,
		runner:      runner,
		log:         zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
		workers:     2,
		queue:       64,
		chatTimeout: insight.DefaultTimeout,
		pending:     map[string]chan struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	s.pool = NewPool(s.workers, s.queue, s.log)
	return s
}

// Submit creates a pending job for the file at path and schedules its
// analysis. It returns without waiting for the run.
func (s *Service) Submit(ctx context.Context, userID, filename, path string) (*Job, error) {
	j := &Job{
		ID:         s.newID(),
		UserID:     userID,
		Filename:   filename,
		FilePath:   path,
		UploadedAt: s.now().UTC(),
		Status:     StatusPending,
	}
	if err := s.store.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if _, ok := s.pending[j.ID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, j.ID)
	}
	s.pending[j.ID] = done
	s.mu.Unlock()

	err := s.pool.Submit(ctx, func(ctx context.Context) { s.process(ctx, j.ID, done) })
	if err != nil {
		s.finish(j.ID, done)
		if ferr := s.store.Fail(context.WithoutCancel(ctx), j.ID, "could not schedule analysis: "+err.Error()); ferr != nil {
			s.log.Error("jobs: fail unscheduled job", zap.String("job_id", j.ID), zap.Error(ferr))
		}
		return nil, fmt.Errorf("schedule job: %w", err)
	}
	s.log.Info("jobs: submitted", zap.String("job_id", j.ID), zap.String("user_id", userID), zap.String("filename", filename))
	return j.Clone(), nil
}

func (s *Service) finish(id string, done chan struct{}) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
	close(done)
}

func (s *Service) process(ctx context.Context, id string, done chan struct{}) {
	defer s.finish(id, done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("jobs: run panicked", zap.String("job_id", id), zap.String("panic", fmt.Sprint(r)))
			s.fail(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	j, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Error("jobs: load job", zap.String("job_id", id), zap.Error(err))
		return
	}
	if err := s.store.MarkProcessing(ctx, id); err != nil {
		s.log.Error("jobs: mark processing", zap.String("job_id", id), zap.Error(err))
		return
	}
	start := s.now()
	res, err := s.runner.Run(ctx, j.FilePath)
	if err != nil {
		s.log.Warn("jobs: analysis failed", zap.String("job_id", id), zap.Error(err))
		s.fail(ctx, id, err.Error())
		return
	}
	if err := s.store.Complete(ctx, id, res, s.now().UTC()); err != nil {
		s.log.Error("jobs: store result", zap.String("job_id", id), zap.Error(err))
		s.fail(ctx, id, "could not store result: "+err.Error())
		return
	}
	s.log.Info("jobs: completed", zap.String("job_id", id), zap.Duration("elapsed", s.now().Sub(start)))
}

func (s *Service) fail(ctx context.Context, id, msg string) {
	if err := s.store.Fail(ctx, id, msg); err != nil {
		s.log.Error("jobs: mark failed", zap.String("job_id", id), zap.Error(err))
	}
}

// Wait blocks until the job's background run has finished or ctx ends. A job
// with no run in flight returns immediately.
func (s *Service) Wait(ctx context.Context, id string) error {
	s.mu.Lock()
	done, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		_, err := s.store.Get(ctx, id)
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the job if it belongs to userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*Job, error) {
	j, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		return nil, ErrNotFound
	}
	return j, nil
}

// List returns the user's most recent jobs, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Job, error) {
	return s.store.ListByUser(ctx, userID, ListLimit)
}

// ChatSystemPrompt frames dataset questions for the generator.
const ChatSystemPrompt = "You are a data analyst assistant. Answer questions about the dataset based on the provided context. Be concise and helpful."

// Chat answers a question about a completed job. Generator failures yield a
// fixed summary answer instead of an error.
func (s *Service) Chat(ctx context.Context, id, userID, message string) (string, error) {
	j, err := s.Get(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if j.Status != StatusCompleted || j.Result == nil || j.Result.EDAResults == nil || j.Result.CleaningReport == nil {
		return "", ErrNotCompleted
	}
	if s.gen == nil {
		return ChatFallback(j), nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()
	text, err := s.gen.Generate(cctx, ChatSystemPrompt, ChatContext(j, message))
	if err == nil && strings.TrimSpace(text) == "" {
		err = insight.ErrEmptyText
	}
	if err != nil {
		if insight.Expected(err) {
			s.log.Warn("jobs: chat generator unavailable", zap.String("job_id", id), zap.Error(err))
		} else {
			s.log.Error("jobs: chat generator failed", zap.String("job_id", id), zap.Error(err))
		}
		return ChatFallback(j), nil
	}
	return strings.TrimSpace(text), nil
}

// ChatContext builds the generator prompt for a question about j, which must
// be completed.
func ChatContext(j *Job, message string) string {
	rep := j.Result.CleaningReport
	eda := j.Result.EDAResults
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", j.Filename)
	fmt.Fprintf(&b, "Rows: %d\n", eda.Overview.Rows)
	fmt.Fprintf(&b, "Columns: %d\n", eda.Overview.Columns)
	fmt.Fprintf(&b, "Data Quality: %.1f%% complete\n", float64(eda.DataQuality.Completeness))
	fmt.Fprintf(&b, "Missing Values: %d columns\n", len(rep.MissingValues))
	fmt.Fprintf(&b, "Duplicates Removed: %d\n", rep.DuplicatesRemoved)
	fmt.Fprintf(&b, "Outliers: %d columns detected\n\n", len(rep.OutliersDetected))
	fmt.Fprintf(&b, "Column Analysis: %s\n\n", strings.Join(eda.Overview.ColumnNames, ", "))
	fmt.Fprintf(&b, "User Question: %s", message)
	return b.String()
}

// ChatFallback is the answer given when no generator responds.
func ChatFallback(j *Job) string {
	eda := j.Result.EDAResults
	return fmt.Sprintf("I can help you understand your dataset '%s' with %d rows and %d columns. The data is %.1f%% complete. What specific aspect would you like to know more about?",
		j.Filename, eda.Overview.Rows, eda.Overview.Columns, float64(eda.DataQuality.Completeness))
}

// Close stops accepting jobs and waits for queued runs to finish.
func (s *Service) Close() error {
	if err := s.pool.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
