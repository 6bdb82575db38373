package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
)

// Driver names accepted by OpenSQL.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_jobs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_path    TEXT NOT NULL,
		uploaded_at  BIGINT NOT NULL,
		status       TEXT NOT NULL,
		completed_at BIGINT,
		error        TEXT NOT NULL DEFAULT '',
		result       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS analysis_jobs_user_uploaded ON analysis_jobs (user_id, uploaded_at)`,
}

func init() {
	// sqlx only knows the mattn driver name for sqlite
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQL stores jobs in the analysis_jobs table. Timestamps are unix
// nanoseconds and the result is its JSON encoding.
type SQL struct {
	db *sqlx.DB
}

type jobRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Filename    string         `db:"filename"`
	FilePath    string         `db:"file_path"`
	UploadedAt  int64          `db:"uploaded_at"`
	Status      string         `db:"status"`
	CompletedAt sql.NullInt64  `db:"completed_at"`
	Error       string         `db:"error"`
	Result      sql.NullString `db:"result"`
}

const selectJob = `SELECT id, user_id, filename, file_path, uploaded_at, status, completed_at, error, result FROM analysis_jobs`

// OpenSQL connects with driver ("postgres" or "sqlite") and creates the
// schema if missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY between pool workers
		db.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}
	s := NewSQL(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open connection. Call Migrate before first use.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// Migrate creates the jobs table and index.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Create(ctx context.Context, j *jobs.Job) error {
	row, err := toRow(j)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `INSERT INTO analysis_jobs
		(id, user_id, filename, file_path, uploaded_at, status, completed_at, error, result)
		VALUES (:id, :user_id, :filename, :file_path, :uploaded_at, :status, :completed_at, :error, :result)`, row)
	if err != nil {
		if _, gerr := s.Get(ctx, j.ID); gerr == nil {
			return fmt.Errorf("%w: %s", jobs.ErrDuplicate, j.ID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, id string) (*jobs.Job, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectJob+` WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobs.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return row.job()
}

func (s *SQL) ListByUser(ctx context.Context, userID string, limit int) ([]*jobs.Job, error) {
	query := selectJob + ` WHERE user_id = ? ORDER BY uploaded_at DESC, id ASC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]*jobs.Job, 0, len(rows))
	for i := range rows {
		j, err := rows[i].job()
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// transition runs a conditional UPDATE and, when no row changed, tells a
// missing job apart from an illegal transition.
func (s *SQL) transition(ctx context.Context, id string, to jobs.Status, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", jobs.ErrInvalidTransition, cur.Status, to)
}

func (s *SQL) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, jobs.StatusProcessing,
		`UPDATE analysis_jobs SET status = ? WHERE id = ? AND status = ?`,
		string(jobs.StatusProcessing), id, string(jobs.StatusPending))
}

func (s *SQL) Complete(ctx context.Context, id string, res *pipeline.Result, at time.Time) error {
	if res == nil {
		return errors.New("complete: nil result")
	}
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.transition(ctx, id, jobs.StatusCompleted,
		`UPDATE analysis_jobs SET status = ?, result = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(jobs.StatusCompleted), string(b), at.UnixNano(), id, string(jobs.StatusProcessing))
}

func (s *SQL) Fail(ctx context.Context, id string, msg string) error {
	return s.transition(ctx, id, jobs.StatusFailed,
		`UPDATE analysis_jobs SET status = ?, error = ? WHERE id = ? AND status IN (?, ?)`,
		string(jobs.StatusFailed), msg, id, string(jobs.StatusPending), string(jobs.StatusProcessing))
}

func toRow(j *jobs.Job) (jobRow, error) {
	row := jobRow{
		ID:         j.ID,
		UserID:     j.UserID,
		Filename:   j.Filename,
		FilePath:   j.FilePath,
		UploadedAt: j.UploadedAt.UnixNano(),
		Status:     string(j.Status),
		Error:      j.Error,
	}
	if j.CompletedAt != nil {
		row.CompletedAt = sql.NullInt64{Int64: j.CompletedAt.UnixNano(), Valid: true}
	}
	if j.Result != nil {
		b, err := json.Marshal(j.Result)
		if err != nil {
			return row, fmt.Errorf("encode result: %w", err)
		}
		row.Result = sql.NullString{String: string(b), Valid: true}
	}
	return row, nil
}

func (r *jobRow) job() (*jobs.Job, error) {
	j := &jobs.Job{
		ID:         r.ID,
		UserID:     r.UserID,
		Filename:   r.Filename,
		FilePath:   r.FilePath,
		UploadedAt: time.Unix(0, r.UploadedAt).UTC(),
		Status:     jobs.Status(r.Status),
		Error:      r.Error,
	}
	if r.CompletedAt.Valid {
		at := time.Unix(0, r.CompletedAt.Int64).UTC()
		j.CompletedAt = &at
	}
	if r.Result.Valid {
		var res pipeline.Result
		if err := json.Unmarshal([]byte(r.Result.String), &res); err != nil {
			return nil, fmt.Errorf("decode result of job %s: %w", r.ID, err)
		}
		j.Result = &res
	}
	return j, nil
}
