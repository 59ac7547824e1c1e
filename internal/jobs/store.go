package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reel/internal/config"
	"reel/internal/services"
)

// Store manages render-job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	return OpenPath(dbPath)
}

// OpenPath opens a job database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new job in the created state and returns its snapshot.
func (s *Store) Create(ctx context.Context, outputPath string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_jobs (id, state, created_at, updated_at, progress, output_path)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		StateCreated,
		timestamp,
		timestamp,
		0.0,
		nullableString(outputPath),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Transition advances a job to the next working state. Illegal moves,
// including any change to a terminal job, are refused.
func (s *Store) Transition(ctx context.Context, id string, next State) error {
	if !ValidState(next) {
		return fmt.Errorf("unknown state %q", next)
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	if !job.State.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", job.State, next, id)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE render_jobs SET state = ?, updated_at = ? WHERE id = ?`,
		next,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	return nil
}

// SetProgress records the render progress percentage for a job.
func (s *Store) SetProgress(ctx context.Context, id string, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE render_jobs SET progress = ?, updated_at = ? WHERE id = ? AND state NOT IN (?, ?)`,
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StateCompleted,
		StateFailed,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a successful render, stores its result, and folds
// the render time into the running average. Stats are touched exactly once.
func (s *Store) MarkCompleted(ctx context.Context, id string, result Result, renderTime time.Duration) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	if !job.State.CanTransition(StateCompleted) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", job.State, StateCompleted, id)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	renderMs := renderTime.Milliseconds()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`UPDATE render_jobs
         SET state = ?, progress = 100, updated_at = ?, render_time_ms = ?, result_json = ?
         WHERE id = ?`,
		StateCompleted,
		time.Now().UTC().Format(time.RFC3339Nano),
		renderMs,
		string(resultJSON),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	// avg' = avg + (t - avg) / n over completed renders only.
	_, err = tx.ExecContext(
		ctx,
		`UPDATE render_stats
         SET processed = processed + 1,
             avg_render_ms = avg_render_ms + (? - avg_render_ms) / (processed + 1 - errors)
         WHERE id = 1`,
		float64(renderMs),
	)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion: %w", err)
	}
	return nil
}

// MarkFailed finalizes a failed job. The failure class decides the stats
// bucket: rejected submissions (validation, configuration, spawn) increment
// the rejected counter; everything else counts as a processed render error.
func (s *Store) MarkFailed(ctx context.Context, id string, failure error, stderrTail string) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	if job.State.Terminal() {
		return fmt.Errorf("job %s already terminal in state %s", id, job.State)
	}

	kind := services.Kind(failure)
	message := ""
	if failure != nil {
		message = failure.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failure tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`UPDATE render_jobs
         SET state = ?, updated_at = ?, error_kind = ?, error_message = ?, stderr_tail = ?
         WHERE id = ?`,
		StateFailed,
		time.Now().UTC().Format(time.RFC3339Nano),
		kind,
		nullableString(message),
		nullableString(stderrTail),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}

	statsSQL := `UPDATE render_stats SET processed = processed + 1, errors = errors + 1 WHERE id = 1`
	if services.Rejected(failure) {
		statsSQL = `UPDATE render_stats SET rejected = rejected + 1 WHERE id = 1`
	}
	if _, err := tx.ExecContext(ctx, statsSQL); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	return nil
}

// GetByID fetches a job snapshot by identifier. A missing job returns nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns all jobs ordered from newest to oldest.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM render_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		items = append(items, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

// Stats returns an immutable snapshot of the aggregate counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(
		ctx,
		`SELECT processed, errors, rejected, avg_render_ms FROM render_stats WHERE id = 1`,
	)
	if err := row.Scan(&stats.Processed, &stats.Errors, &stats.Rejected, &stats.AvgRenderMs); err != nil {
		return Stats{}, fmt.Errorf("read stats: %w", err)
	}
	if stats.Processed > 0 {
		stats.SuccessRate = float64(stats.Processed-stats.Errors) / float64(stats.Processed)
	}
	return stats, nil
}
