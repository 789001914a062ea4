package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the daemon's local SQLite journal: experience awards and notices.
type Store struct {
	db *sql.DB
}

// Open opens or creates studyd.db in dataDir and applies pending migrations.
// A dataDir of ":memory:" gives a throwaway in-memory database.
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "studyd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded migrations newer than the recorded schema version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Filenames start with the version number.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations lists applied schema versions, oldest first.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- XP awards ---

// SaveAward appends an award to the journal.
func (s *Store) SaveAward(a Award) error {
	_, err := s.db.Exec(`
		INSERT INTO xp_awards (id, created_at, reason, xp) VALUES (?, ?, ?, ?)`,
		a.ID, a.CreatedAt.UTC().Format(time.RFC3339), a.Reason, a.XP,
	)
	return err
}

// TotalXP sums every journaled award.
func (s *Store) TotalXP() (int, error) {
	var total int
	err := s.db.QueryRow("SELECT COALESCE(SUM(xp), 0) FROM xp_awards").Scan(&total)
	return total, err
}

// RecentAwards returns the newest awards first.
func (s *Store) RecentAwards(limit int) ([]Award, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, reason, xp
		FROM xp_awards ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Award
	for rows.Next() {
		var a Award
		var createdAt string
		if err := rows.Scan(&a.ID, &createdAt, &a.Reason, &a.XP); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}

// AwardsByReason totals the journal per reason.
func (s *Store) AwardsByReason() (map[string]int, error) {
	rows, err := s.db.Query("SELECT reason, SUM(xp) FROM xp_awards GROUP BY reason")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var reason string
		var xp int
		if err := rows.Scan(&reason, &xp); err != nil {
			return nil, err
		}
		result[reason] = xp
	}
	return result, rows.Err()
}

// --- Notices ---

func (s *Store) SaveNotice(n Notice) error {
	_, err := s.db.Exec(`
		INSERT INTO notices (id, created_at, kind, message, seen) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.CreatedAt.UTC().Format(time.RFC3339), n.Kind, n.Message, n.Read,
	)
	return err
}

// ListNotices returns the newest notices first. With unreadOnly set, read
// notices are skipped.
func (s *Store) ListNotices(limit int, unreadOnly bool) ([]Notice, error) {
	query := `SELECT id, created_at, kind, message, seen FROM notices`
	if unreadOnly {
		query += ` WHERE seen = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Notice
	for rows.Next() {
		var n Notice
		var createdAt string
		if err := rows.Scan(&n.ID, &createdAt, &n.Kind, &n.Message, &n.Read); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		n.CreatedAt = t
		results = append(results, n)
	}
	return results, rows.Err()
}

// MarkNoticeRead flags a notice as read.
func (s *Store) MarkNoticeRead(id string) error {
	res, err := s.db.Exec(`UPDATE notices SET seen = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNoticesRead flags every notice as read and returns how many changed.
func (s *Store) MarkAllNoticesRead() (int, error) {
	res, err := s.db.Exec(`UPDATE notices SET seen = 1 WHERE seen = 0`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
