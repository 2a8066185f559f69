package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cutmind/internal/pattern/assets"
)

// ============================================================
// SQLite Pattern Store
// ============================================================

// ErrNotFound signals an unknown pattern id.
var ErrNotFound = errors.New("pattern not found")

//go:embed migrations/001_init_patterns.sql
var migrations embed.FS

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init runs migrations and seeds the base pattern blocks that are missing.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return r.seedBaseBlocks(ctx)
}

// GetSVG returns the raw base SVG for a pattern id.
func (r *Repository) GetSVG(ctx context.Context, id string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT svg FROM patterns WHERE id = ?
    `, id)

	var svg string
	if err := row.Scan(&svg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return svg, nil
}

// List returns all pattern ids in sorted order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id FROM patterns ORDER BY id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ============================================================
// Migrations & Seeding
// ============================================================

func (r *Repository) runMigrations() error {
	data, err := migrations.ReadFile("migrations/001_init_patterns.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.Exec(string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (r *Repository) seedBaseBlocks(ctx context.Context) error {
	for _, id := range assets.IDs() {
		svg, _ := assets.Get(id)
		_, err := r.db.ExecContext(ctx, `
            INSERT INTO patterns (id, svg) VALUES (?, ?)
            ON CONFLICT(id) DO NOTHING
        `, id, svg)
		if err != nil {
			return fmt.Errorf("seed pattern %s: %w", id, err)
		}
	}
	return nil
}

// OpenSQLite opens the pattern database at the given path.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
