// Package archive persists a record of every completed download to a
// small sqlite database kept beside the downloaded files. The archive
// is strictly an accelerator and reporting surface: resumability is
// decided by file presence alone, so deleting archive.db never changes
// which tasks are skipped or retried.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/civica/civica/internal/download"
	"github.com/civica/civica/pkg/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	sqldblogger "github.com/simukti/sqldb-logger"
)

const sqlDialect = "sqlite3"

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	log = logger.Get("Archive")
)

type (
	// Entry is one archived download.
	Entry struct {
		ID           string    `db:"id"`
		URL          string    `db:"url"`
		Kind         string    `db:"kind"`
		Category     string    `db:"category"`
		Path         string    `db:"path"`
		SizeBytes    int64     `db:"size_bytes"`
		Checksum     string    `db:"checksum"`
		MeetingTitle string    `db:"meeting_title"`
		MeetingDate  string    `db:"meeting_date"`
		DownloadedAt time.Time `db:"downloaded_at"`
	}

	// Stats summarises the archive for the show-archive mode.
	Stats struct {
		Files      int
		TotalBytes int64
		ByKind     map[string]int
	}

	Store struct {
		db *sqlx.DB
	}

	sqlLogger struct {
		logger logger.Logger
	}
)

// Open connects to (creating if needed) the archive database at the
// given path and brings its schema up to date.
func Open(path string) (*Store, error) {
	raw := sqldblogger.OpenDriver(path, &sqlite3.SQLiteDriver{}, &sqlLogger{log})
	if err := raw.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open archive database %s: %w", path, err)
	}

	if err := executeMigrations(raw); err != nil {
		return nil, err
	}

	return &Store{db: sqlx.NewDb(raw, sqlDialect)}, nil
}

// executeMigrations runs the comp-time embedded SQL migrations (found
// in the 'migrations' dir in this package) against the archive DB.
func executeMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log)
	if err := goose.SetDialect(sqlDialect); err != nil {
		return fmt.Errorf("failed to set dialect for archive migration: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate archive database: %w", err)
	}

	return nil
}

// Record stores the outcome of a successful transfer. Re-downloading
// a path (e.g. after a zero-byte residue) replaces the previous row.
func (store *Store) Record(result download.Result) error {
	if result.Task == nil {
		return fmt.Errorf("cannot archive a result with no task")
	}

	meetingDate := ""
	if !result.Task.MeetingDate.IsZero() {
		meetingDate = result.Task.MeetingDate.Format("2006-01-02")
	}

	_, err := store.db.Exec(`
		INSERT OR REPLACE INTO downloads(id, url, kind, category, path, size_bytes, checksum, meeting_title, meeting_date, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), result.Task.URL, string(result.Task.Kind), result.Task.Category.String(),
		result.Task.TargetPath, result.Bytes, result.Checksum, result.Task.MeetingTitle, meetingDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to archive download of %s: %w", result.Task.TargetPath, err)
	}

	return nil
}

// Stats aggregates the archive's contents.
func (store *Store) Stats() (*Stats, error) {
	stats := &Stats{ByKind: make(map[string]int)}

	query, args, err := squirrel.
		Select("COUNT(*) AS files", "COALESCE(SUM(size_bytes), 0) AS total_bytes").
		From("downloads").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct archive stats query: %w", err)
	}

	row := store.db.QueryRow(query, args...)
	if err := row.Scan(&stats.Files, &stats.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to aggregate archive stats: %w", err)
	}

	kindQuery, kindArgs, err := squirrel.
		Select("kind", "COUNT(*) AS count").
		From("downloads").
		GroupBy("kind").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct archive kind query: %w", err)
	}

	rows, err := store.db.Query(kindQuery, kindArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate archive kinds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.ByKind[kind] = count
	}

	return stats, rows.Err()
}

// Recent returns the most recently archived downloads, newest first.
func (store *Store) Recent(limit int) ([]Entry, error) {
	query, args, err := squirrel.
		Select("*").
		From("downloads").
		OrderBy("downloaded_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct recent downloads query: %w", err)
	}

	var entries []Entry
	if err := store.db.Select(&entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list recent downloads: %w", err)
	}

	return entries, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

func (l *sqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	switch level {
	case sqldblogger.LevelError:
		l.logger.Errorf("%s - %v\n", msg, data)
	default:
		if query, ok := data["query"]; ok {
			l.logger.Verbosef("%s -- %s\n", msg, query)
		} else {
			l.logger.Verbosef("%s\n", msg)
		}
	}
}
