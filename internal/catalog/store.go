// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store provides SQLite persistence for the video catalog.
type Store struct {
	db *sql.DB
}

// NewStore opens the catalog database and runs migrations.
// WAL mode + busy_timeout suit the read-heavy workload.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		duration_label TEXT NOT NULL DEFAULT '',
		is_live INTEGER NOT NULL DEFAULT 0,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		stream_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_live ON videos(is_live);
	CREATE INDEX IF NOT EXISTS idx_videos_category ON videos(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or updates a video row.
func (s *Store) Upsert(ctx context.Context, v Video) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO videos (id, title, category, duration_label, is_live, thumbnail_url, stream_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		category = excluded.category,
		duration_label = excluded.duration_label,
		is_live = excluded.is_live,
		thumbnail_url = excluded.thumbnail_url,
		stream_url = excluded.stream_url
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID, v.Title, v.Category, v.DurationLabel, boolToInt(v.IsLive),
		v.ThumbnailURL, v.StreamURL, v.CreatedAt.Format(time.RFC3339))
	return err
}

// Get retrieves a single video by id.
func (s *Store) Get(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, title, category, duration_label, is_live, thumbnail_url, stream_url, created_at
	FROM videos WHERE id = ?`, id)

	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// List retrieves all videos, optionally filtered by category, newest first.
func (s *Store) List(ctx context.Context, category string) ([]Video, error) {
	query := `
	SELECT id, title, category, duration_label, is_live, thumbnail_url, stream_url, created_at
	FROM videos`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryVideos(ctx, query, args...)
}

// Live retrieves all live entries, oldest first so live[0] is the default
// stream a new player session starts with.
func (s *Store) Live(ctx context.Context) ([]Video, error) {
	return s.queryVideos(ctx, `
	SELECT id, title, category, duration_label, is_live, thumbnail_url, stream_url, created_at
	FROM videos WHERE is_live = 1 ORDER BY created_at, id`)
}

// Delete removes a video row. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	return err
}

func (s *Store) queryVideos(ctx context.Context, query string, args ...any) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var videos []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*Video, error) {
	var v Video
	var isLive int
	var createdAt string
	if err := row.Scan(&v.ID, &v.Title, &v.Category, &v.DurationLabel, &isLive,
		&v.ThumbnailURL, &v.StreamURL, &createdAt); err != nil {
		return nil, err
	}
	v.IsLive = isLive != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}
	return &v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
