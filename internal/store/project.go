package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/motionscript/internal/beat"
	"github.com/banshee-data/motionscript/internal/funscript"
)

// ProjectInfo summarises a stored project.
type ProjectInfo struct {
	Name      string
	VideoPath string
	Tracks    int
	HasBeats  bool
	UpdatedMs int64
}

// SaveProject replaces every track of the named project with p's tracks.
func (s *Store) SaveProject(name string, p *funscript.Project) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.nowMs()
	if err := upsertProject(tx, name, p.VideoPath, now); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tracks WHERE project = ?`, name); err != nil {
		return fmt.Errorf("save project %q: %w", name, err)
	}
	for _, tn := range p.Names() {
		if err := putTrack(tx, name, p.Tracks[tn], now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadProject rebuilds a project from its stored tracks.
func (s *Store) LoadProject(name string) (*funscript.Project, error) {
	var video string
	err := s.db.QueryRow(`SELECT video_path FROM projects WHERE name = ?`, name).Scan(&video)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %q: %w", name, err)
	}

	rows, err := s.db.Query(`SELECT payload FROM tracks WHERE project = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("load project %q: %w", name, err)
	}
	defer rows.Close()
	p := &funscript.Project{VideoPath: video, Tracks: map[string]*funscript.Track{}}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t funscript.Track
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("load project %q: %w", name, err)
		}
		p.Tracks[t.Name] = &t
	}
	return p, rows.Err()
}

// SaveTrack upserts one track, creating the project row if needed.
func (s *Store) SaveTrack(project string, t *funscript.Track) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := s.nowMs()
	if err := ensureProject(tx, project, now); err != nil {
		return err
	}
	if err := putTrack(tx, project, t, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) LoadTrack(project, name string) (*funscript.Track, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM tracks WHERE project = ? AND name = ?`, project, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s/%s: %w", project, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load track %s/%s: %w", project, name, err)
	}
	var t funscript.Track
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("load track %s/%s: %w", project, name, err)
	}
	return &t, nil
}

// SaveBeatData stores the beat analysis of a project.
func (s *Store) SaveBeatData(project string, d *beat.Data) error {
	payload, err := encode(d.ToMap())
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := s.nowMs()
	if err := ensureProject(tx, project, now); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO beat_data (project, payload, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(project) DO UPDATE SET payload = excluded.payload, updated_ms = excluded.updated_ms`,
		project, payload, now)
	if err != nil {
		return fmt.Errorf("save beat data %q: %w", project, err)
	}
	return tx.Commit()
}

func (s *Store) LoadBeatData(project string) (beat.Data, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM beat_data WHERE project = ?`, project).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return beat.Data{}, fmt.Errorf("beat data %q: %w", project, ErrNotFound)
	}
	if err != nil {
		return beat.Data{}, fmt.Errorf("load beat data %q: %w", project, err)
	}
	m, err := decodeMap(payload)
	if err != nil {
		return beat.Data{}, fmt.Errorf("load beat data %q: %w", project, err)
	}
	return beat.DataFromMap(m)
}

// Projects lists stored projects by name.
func (s *Store) Projects() ([]ProjectInfo, error) {
	rows, err := s.db.Query(`
		SELECT p.name, p.video_path, p.updated_ms,
		       (SELECT COUNT(*) FROM tracks t WHERE t.project = p.name),
		       EXISTS (SELECT 1 FROM beat_data b WHERE b.project = p.name)
		FROM projects p ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []ProjectInfo
	for rows.Next() {
		var pi ProjectInfo
		if err := rows.Scan(&pi.Name, &pi.VideoPath, &pi.UpdatedMs, &pi.Tracks, &pi.HasBeats); err != nil {
			return nil, err
		}
		out = append(out, pi)
	}
	return out, rows.Err()
}

// DeleteProject removes a project with its tracks and beat data.
func (s *Store) DeleteProject(name string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return nil
}

func upsertProject(tx *sql.Tx, name, video string, now int64) error {
	if name == "" {
		return errors.New("save project: empty name")
	}
	_, err := tx.Exec(`INSERT INTO projects (name, video_path, created_ms, updated_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET video_path = excluded.video_path, updated_ms = excluded.updated_ms`,
		name, video, now, now)
	if err != nil {
		return fmt.Errorf("save project %q: %w", name, err)
	}
	return nil
}

// ensureProject creates the project row without touching an existing
// video path.
func ensureProject(tx *sql.Tx, name string, now int64) error {
	if name == "" {
		return errors.New("save project: empty name")
	}
	_, err := tx.Exec(`INSERT INTO projects (name, created_ms, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_ms = excluded.updated_ms`, name, now, now)
	if err != nil {
		return fmt.Errorf("save project %q: %w", name, err)
	}
	return nil
}

func putTrack(tx *sql.Tx, project string, t *funscript.Track, now int64) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("save track in %q: unnamed track", project)
	}
	payload, err := encode(t)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO tracks (project, name, payload, updated_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(project, name) DO UPDATE SET payload = excluded.payload, updated_ms = excluded.updated_ms`,
		project, t.Name, payload, now)
	if err != nil {
		return fmt.Errorf("save track %s/%s: %w", project, t.Name, err)
	}
	return nil
}
