package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/motionscript/internal/monitoring"
)

// ErrNotFound is returned when a named record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// Open opens or creates the database at path and migrates it to the
// latest schema.
func Open(path string) (*Store, error) {
	dsn := path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		dsn += sep + "_pragma=" + p
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Diagf("store: opened %s", path)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) nowMs() int64 { return s.now().UnixMilli() }

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(payload string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// putDoc upserts a JSON document into one of the name-keyed tables.
func (s *Store) putDoc(table, name string, v any) error {
	if name == "" {
		return fmt.Errorf("save %s: empty name", table)
	}
	payload, err := encode(v)
	if err != nil {
		return fmt.Errorf("save %s %q: %w", table, name, err)
	}
	_, err = s.db.Exec(`INSERT INTO `+table+` (name, payload, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_ms = excluded.updated_ms`,
		name, payload, s.nowMs())
	if err != nil {
		return fmt.Errorf("save %s %q: %w", table, name, err)
	}
	return nil
}

func (s *Store) getDoc(table, name string) (map[string]any, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM `+table+` WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", table, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", table, name, err)
	}
	m, err := decodeMap(payload)
	if err != nil {
		return nil, fmt.Errorf("load %s %q: %w", table, name, err)
	}
	return m, nil
}

func (s *Store) listNames(table string) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM ` + table + ` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
