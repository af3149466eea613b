package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/prstats/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storeErr("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeErr("open database", err)
	}

	// SQLite only supports one concurrent writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, storeErr(p, err)
		}
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// storeErr tags a driver error with models.ErrStore.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

// rawOrNil converts a stored payload column back into a json.RawMessage.
func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return storeErr("create migrations table", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return storeErr("check migration "+name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return storeErr("apply migration "+name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return storeErr("record migration "+name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Pull requests ---

// UpsertPR writes the pull request row, replacing every column of an existing row.
func (s *SQLiteStore) UpsertPR(ctx context.Context, pr *models.PullRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pull_requests (pr_number, title, state, created_at, updated_at, pr_data, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pr_number) DO UPDATE SET
			title=excluded.title, state=excluded.state, created_at=excluded.created_at,
			updated_at=excluded.updated_at, pr_data=excluded.pr_data, cached_at=excluded.cached_at`,
		pr.Number, pr.Title, string(pr.State), pr.CreatedAt.UTC(), pr.UpdatedAt.UTC(), string(pr.Raw), s.now(),
	)
	if err != nil {
		return storeErr(fmt.Sprintf("upsert pull request #%d", pr.Number), err)
	}
	return nil
}

func (s *SQLiteStore) GetPR(ctx context.Context, number int) (*models.CacheRecord, error) {
	rec := &models.CacheRecord{}
	var state, raw string

	err := s.db.QueryRowContext(ctx,
		`SELECT pr_number, title, state, created_at, updated_at, pr_data, cached_at
		FROM pull_requests WHERE pr_number = ?`, number,
	).Scan(&rec.Number, &rec.Title, &state, &rec.CreatedAt, &rec.UpdatedAt, &raw, &rec.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pull request #%d: %w", number, models.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get pull request #%d", number), err)
	}

	rec.State = models.PRState(state)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	rec.Raw = rawOrNil(raw)
	return rec, nil
}

func (s *SQLiteStore) ListClosedPRs(ctx context.Context) ([]*models.PullRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pr_number, title, state, created_at, updated_at, pr_data
		FROM pull_requests WHERE state = ? ORDER BY pr_number DESC`, string(models.PRStateClosed))
	if err != nil {
		return nil, storeErr("list closed pull requests", err)
	}
	defer func() { _ = rows.Close() }()

	var prs []*models.PullRequest
	for rows.Next() {
		pr := &models.PullRequest{}
		var state, raw string
		if err := rows.Scan(&pr.Number, &pr.Title, &state, &pr.CreatedAt, &pr.UpdatedAt, &raw); err != nil {
			return nil, storeErr("scan pull request", err)
		}
		pr.State = models.PRState(state)
		pr.CreatedAt = pr.CreatedAt.UTC()
		pr.UpdatedAt = pr.UpdatedAt.UTC()
		pr.Raw = rawOrNil(raw)
		prs = append(prs, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list closed pull requests", err)
	}
	return prs, nil
}

// --- Reviews ---

// ReplaceReviews swaps the cached review set of a pull request in a single
// transaction. Readers see either the old set or the new one.
func (s *SQLiteStore) ReplaceReviews(ctx context.Context, prNumber int, reviews []*models.Review) error {
	op := fmt.Sprintf("replace reviews for #%d", prNumber)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reviews WHERE pr_number = ?", prNumber); err != nil {
		return storeErr(op, err)
	}

	now := s.now()
	for _, r := range reviews {
		var submitted sql.NullTime
		if r.SubmittedAt != nil {
			submitted = sql.NullTime{Time: r.SubmittedAt.UTC(), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reviews (id, pr_number, review_id, reviewer, state, submitted_at, review_data, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ulid.Make().String(), prNumber, r.ID, r.Reviewer, r.State, submitted, string(r.Raw), now,
		)
		if err != nil {
			return storeErr(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *SQLiteStore) GetReviews(ctx context.Context, prNumber int) ([]*models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT review_id, pr_number, reviewer, state, submitted_at, review_data
		FROM reviews WHERE pr_number = ?`, prNumber)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get reviews for #%d", prNumber), err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*models.Review
	for rows.Next() {
		r := &models.Review{}
		var submitted sql.NullTime
		var raw string
		if err := rows.Scan(&r.ID, &r.PRNumber, &r.Reviewer, &r.State, &submitted, &raw); err != nil {
			return nil, storeErr("scan review", err)
		}
		if submitted.Valid {
			t := submitted.Time.UTC()
			r.SubmittedAt = &t
		}
		r.Raw = rawOrNil(raw)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(fmt.Sprintf("get reviews for #%d", prNumber), err)
	}
	return reviews, nil
}

// InvalidateReviews drops the cached reviews of a pull request so the next
// run refetches them. It returns the number of rows removed.
func (s *SQLiteStore) InvalidateReviews(ctx context.Context, prNumber int) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE pr_number = ?", prNumber)
	if err != nil {
		return 0, storeErr(fmt.Sprintf("invalidate reviews for #%d", prNumber), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr(fmt.Sprintf("invalidate reviews for #%d", prNumber), err)
	}
	return n, nil
}
