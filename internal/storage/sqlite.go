package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteBackend persists the state in a SQLite database. Save replaces the
// full contents inside one transaction, keeping the same whole-store
// rewrite semantics as the file backend.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database in dataDir and runs
// pending migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func OpenSQLite(dataDir string) (*SQLiteBackend, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "presence.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return b, nil
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (b *SQLiteBackend) migrate() error {
	if _, err := b.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

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
		if err := b.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := b.db.Begin()
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

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (b *SQLiteBackend) AppliedMigrations() ([]int, error) {
	rows, err := b.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
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

// Load reads the full state from the database.
func (b *SQLiteBackend) Load() (State, error) {
	st := NewState()

	if err := b.loadUsers(&st); err != nil {
		return State{}, err
	}
	if err := b.loadPlans(&st); err != nil {
		return State{}, err
	}
	if err := b.loadTimeOff(&st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (b *SQLiteBackend) loadUsers(st *State) error {
	rows, err := b.db.Query("SELECT user_id, avatar FROM users")
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var avatar sql.NullString
		if err := rows.Scan(&id, &avatar); err != nil {
			return fmt.Errorf("scanning user: %w", err)
		}
		u := &UserRecord{}
		if avatar.Valid {
			av := avatar.String
			u.Avatar = &av
		}
		st.Users[id] = u
	}
	return rows.Err()
}

func (b *SQLiteBackend) loadPlans(st *State) error {
	rows, err := b.db.Query("SELECT user_id, week, locations, timestamp FROM plans")
	if err != nil {
		return fmt.Errorf("loading plans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, week, locationsJSON string
		var ts int64
		if err := rows.Scan(&id, &week, &locationsJSON, &ts); err != nil {
			return fmt.Errorf("scanning plan: %w", err)
		}
		locations := make(map[string]string)
		if err := json.Unmarshal([]byte(locationsJSON), &locations); err != nil {
			return fmt.Errorf("parsing locations for %s/%s: %w", id, week, err)
		}
		st.SetPlan(id, week, &PlanRecord{Locations: locations, Timestamp: ts})
	}
	return rows.Err()
}

func (b *SQLiteBackend) loadTimeOff(st *State) error {
	rows, err := b.db.Query("SELECT user_id, date, id, leave_type, duration, timestamp FROM timeoff")
	if err != nil {
		return fmt.Errorf("loading timeoff: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, date string
		var rec TimeOffRecord
		if err := rows.Scan(&userID, &date, &rec.ID, &rec.LeaveType, &rec.Duration, &rec.Timestamp); err != nil {
			return fmt.Errorf("scanning timeoff: %w", err)
		}
		st.SetTimeOff(userID, date, &rec)
	}
	return rows.Err()
}

// Save replaces the full database contents with st.
func (b *SQLiteBackend) Save(st State) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "plans", "timeoff"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for id, u := range st.Users {
		var avatar sql.NullString
		if u != nil && u.Avatar != nil {
			avatar = sql.NullString{String: *u.Avatar, Valid: true}
		}
		if _, err := tx.Exec("INSERT INTO users (user_id, avatar) VALUES (?, ?)", id, avatar); err != nil {
			return fmt.Errorf("inserting user %s: %w", id, err)
		}
	}

	for id, weeks := range st.Plans {
		for week, p := range weeks {
			if p == nil {
				continue
			}
			locationsJSON, err := json.Marshal(p.Locations)
			if err != nil {
				return fmt.Errorf("encoding locations for %s/%s: %w", id, week, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO plans (user_id, week, locations, timestamp) VALUES (?, ?, ?, ?)",
				id, week, string(locationsJSON), p.Timestamp,
			); err != nil {
				return fmt.Errorf("inserting plan %s/%s: %w", id, week, err)
			}
		}
	}

	for userID, dates := range st.TimeOff {
		for date, rec := range dates {
			if rec == nil {
				continue
			}
			if _, err := tx.Exec(
				"INSERT INTO timeoff (user_id, date, id, leave_type, duration, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
				userID, date, rec.ID, rec.LeaveType, rec.Duration, rec.Timestamp,
			); err != nil {
				return fmt.Errorf("inserting timeoff %s/%s: %w", userID, date, err)
			}
		}
	}

	return tx.Commit()
}
