// Package feedback persists user feedback and pipeline run history in SQLite.
// Both tables are append-only.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // driver registration

	"github.com/kailas-cloud/tripwise/internal/domain"
	"github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id             TEXT PRIMARY KEY,
	destination_id TEXT NOT NULL,
	rating         INTEGER NOT NULL,
	category       TEXT NOT NULL,
	comment        TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_destination ON feedback(destination_id, category);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	trigger     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	processed   INTEGER NOT NULL,
	added       INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	warnings    TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at DESC);
`

// Repo is the SQLite-backed feedback and run-history store.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. An empty path opens a private in-memory database.
func Open(path string) (*Repo, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; also keeps an in-memory database on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Repo{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (r *Repo) Close() error {
	return r.db.Close() //nolint:wrapcheck // passthrough
}

// Ping checks the database handle.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}

// Append stores f, assigning its id and timestamp.
func (r *Repo) Append(ctx context.Context, f quality.Feedback) (quality.Feedback, error) {
	f.ID = ulid.Make().String()
	f.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (id, destination_id, rating, category, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.DestinationID, f.Rating, string(f.Category), f.Comment, f.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return quality.Feedback{}, fmt.Errorf("insert feedback: %w: %w", domain.ErrPersistence, err)
	}
	return f, nil
}

// ListByDestination returns all feedback for a destination, oldest first.
func (r *Repo) ListByDestination(ctx context.Context, destinationID string) ([]quality.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, destination_id, rating, category, comment, created_at
		 FROM feedback WHERE destination_id = ? ORDER BY created_at, id`, destinationID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []quality.Feedback
	for rows.Next() {
		var f quality.Feedback
		var category string
		var created int64
		if err := rows.Scan(&f.ID, &f.DestinationID, &f.Rating, &category, &f.Comment, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.Category = quality.Category(category)
		f.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

// Summary computes overall and per-category mean ratings for a destination.
func (r *Repo) Summary(ctx context.Context, destinationID string) (quality.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*), SUM(rating) FROM feedback WHERE destination_id = ? GROUP BY category`,
		destinationID)
	if err != nil {
		return quality.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	s := quality.Summary{DestinationID: destinationID, ByCategory: make(map[quality.Category]float64)}
	total := 0
	for rows.Next() {
		var category string
		var n, sum int
		if err := rows.Scan(&category, &n, &sum); err != nil {
			return quality.Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		s.Count += n
		total += sum
		s.ByCategory[quality.Category(category)] = float64(sum) / float64(n)
	}
	if err := rows.Err(); err != nil {
		return quality.Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	if s.Count > 0 {
		s.Overall = float64(total) / float64(s.Count)
	}
	return s, nil
}

// Distribution returns the fleet-wide count of ratings per star value.
func (r *Repo) Distribution(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT rating, COUNT(*) FROM feedback GROUP BY rating`)
	if err != nil {
		return nil, fmt.Errorf("query distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[int]int, quality.MaxRating)
	for rating := quality.MinRating; rating <= quality.MaxRating; rating++ {
		dist[rating] = 0
	}
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dist[rating] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distribution: %w", err)
	}
	return dist, nil
}

// AppendRun records a finished pipeline run.
func (r *Repo) AppendRun(ctx context.Context, s pipeline.RunStats) error {
	warnings, err := json.Marshal(s.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	id := s.RunID
	if id == "" {
		id = ulid.Make().String()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, trigger, started_at, duration_ms, processed, added, updated, errors, skipped, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(s.Trigger), s.LastRun.UnixMilli(), s.Duration.Milliseconds(),
		s.Processed, s.Added, s.Updated, s.Errors, s.Skipped, string(warnings),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repo) ListRuns(ctx context.Context, limit int) ([]pipeline.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trigger, started_at, duration_ms, processed, added, updated, errors, skipped, warnings
		 FROM pipeline_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []pipeline.RunStats{}
	for rows.Next() {
		var s pipeline.RunStats
		var trigger, warnings string
		var started, durationMs int64
		if err := rows.Scan(&s.RunID, &trigger, &started, &durationMs,
			&s.Processed, &s.Added, &s.Updated, &s.Errors, &s.Skipped, &warnings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Trigger = pipeline.Trigger(trigger)
		s.Phase = pipeline.PhaseIdle
		s.LastRun = time.UnixMilli(started).UTC()
		s.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(warnings), &s.Warnings); err != nil {
			s.Warnings = []string{}
		}
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
