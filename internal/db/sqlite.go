package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"ideias/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{db}
	if err := d.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := d.ensureDefaultCampaigns(context.Background()); err != nil {
		return nil, fmt.Errorf("seeding default campaigns: %w", err)
	}

	return d, nil
}

// Migrate applies every pending embedded migration.
func (db *DB) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("applied migration", "component", "db", "version", r.Source.Version, "duration", r.Duration.String())
	}

	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ensureDefaultCampaigns creates the two starter campaigns on an empty database.
func (db *DB) ensureDefaultCampaigns(ctx context.Context) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&count); err != nil {
		return fmt.Errorf("counting campaigns: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	defaults := []struct {
		title, description string
		days               int
	}{
		{"Transformação Digital", "Automatizar processos e experiência do colaborador", 60},
		{"Eficiência Operacional", "Redução de custos e ganho de produtividade", 90},
	}
	for _, c := range defaults {
		_, err := db.ExecContext(ctx,
			`INSERT INTO campaigns (title, description, deadline, status, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.title, c.description, now.AddDate(0, 0, c.days).Format(time.DateOnly), models.CampaignActive, now,
		)
		if err != nil {
			return fmt.Errorf("inserting campaign: %w", err)
		}
	}

	return nil
}
