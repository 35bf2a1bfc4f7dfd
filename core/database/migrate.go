package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/supperbot/core/logger"
)

const migrateComponent = "db.migrate"

// DefaultMigrationsDir is used when Config.MigrationsDir is empty.
const DefaultMigrationsDir = "migrations"

// RunMigrations waits for the server and applies every pending up migration.
func RunMigrations(ctx context.Context, cfg Config) error {
	if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
		logger.Error(ctx, migrateComponent, "db.migrate", slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}
	dir := cfg.MigrationsDir
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	return Migrate(ctx, cfg.URL(), dir)
}

// Migrate applies up migrations from dir to the database at url.
func Migrate(ctx context.Context, url, dir string) error {
	path, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	files := listMigrationFiles(path)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, migrateComponent, "resolve",
		slog.String("path", path),
		slog.Int("count", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+path, url)
	if err != nil {
		logger.Error(ctx, migrateComponent, "init", slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, migrateComponent, "apply",
			slog.String("err", upErr.Error()),
			slog.Duration("duration_ms", took),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		preview, truncated := logger.SummarizeStrings(applied, 6)
		logger.Debug(ctx, migrateComponent, "apply",
			slog.Int("count", len(applied)),
			slog.String("files_preview", preview),
			slog.Bool("files_truncated", truncated),
		)
	}

	logger.Info(ctx, migrateComponent, "summary",
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration_ms", took),
	)
	return nil
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
