package db

import (
	"bufio"
	"database/sql"
	"embed"
	"io/fs"
	"log"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migrator interface {
	Exec(query string, args ...any) (sql.Result, error)
	Get(dest any, query string, args ...any) error
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func Migrate(conn migrator) ([]string, error) {
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		return nil, err
	}
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		filename := strings.TrimPrefix(name, "migrations/")
		var done bool
		if err := conn.Get(&done, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			return applied, err
		}
		if done {
			continue
		}
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, err
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := conn.Exec(stmt); err != nil {
				return applied, err
			}
		}
		if _, err := conn.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			return applied, err
		}
		log.Printf("migrate: applied %s", filename)
		applied = append(applied, filename)
	}
	return applied, nil
}

// SplitStatements returns the up section split on statement terminators.
// Comment lines are dropped; statements may not contain a ';' mid-line.
func SplitStatements(text string) []string {
	up, _, _ := strings.Cut(text, "-- +migrate Down")
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(up))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
