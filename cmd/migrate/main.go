// CLI tool to apply pending database migrations from db/.
// Each file runs in its own transaction together with its migrations row,
// so a failed file leaves nothing half-applied.
// Usage: go run ./cmd/migrate [-dir db]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

var migrationPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{3}-`)

func main() {
	dir := flag.String("dir", "db", "directory holding YYYY-MM-DD-NNN-name.sql files")
	flag.Parse()
	log.SetFlags(0)

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	ran, err := migrate(ctx, conn, *dir)
	if err != nil {
		log.Fatal(err)
	}
	if ran == 0 {
		fmt.Println("No pending migrations.")
	} else {
		fmt.Printf("\n%d migration(s) applied.\n", ran)
	}
}

// migrate applies every file in dir that has no migrations row yet.
func migrate(ctx context.Context, conn *pgx.Conn, dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		return 0, fmt.Errorf("no migration files found in %s", dir)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, f := range pendingMigrations(files, applied) {
		if err := applyMigration(ctx, conn, f); err != nil {
			return ran, err
		}
		fmt.Printf("  applied: %s\n", filepath.Base(f))
		ran++
	}
	return ran, nil
}

// appliedMigrations returns the recorded file names. The table does not
// exist before the first migration, which is treated as none applied.
func appliedMigrations(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	applied := make(map[string]bool)

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT to_regclass('migrations') IS NOT NULL").Scan(&exists); err != nil {
		return nil, fmt.Errorf("check migrations table: %w", err)
	}
	if !exists {
		return applied, nil
	}

	rows, err := conn.Query(ctx, "SELECT migration FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// pendingMigrations returns the files not yet applied, in filename order.
func pendingMigrations(files []string, applied map[string]bool) []string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var pending []string
	for _, f := range sorted {
		if applied[filepath.Base(f)] {
			fmt.Printf("  skip: %s\n", filepath.Base(f))
			continue
		}
		pending = append(pending, f)
	}
	return pending
}

func applyMigration(ctx context.Context, conn *pgx.Conn, path string) error {
	filename := filepath.Base(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("run %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO migrations (migration, description) VALUES ($1, $2)",
		filename, descriptionFromFilename(filename)); err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", filename, err)
	}
	return nil
}

// descriptionFromFilename strips the YYYY-MM-DD-NNN- prefix and .sql suffix.
func descriptionFromFilename(filename string) string {
	name := migrationPrefix.ReplaceAllString(strings.TrimSuffix(filename, ".sql"), "")
	return strings.ReplaceAll(name, "-", " ")
}
