package race

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stadtaev/racereplay/internal/replay"
)

// Store is the race catalog and bundle storage.
type Store interface {
	ListRaces(ctx context.Context) ([]Summary, error)
	GetRace(ctx context.Context, id string) (*Detail, error)
	// LoadBundle loads every resource of the race in one batch. Any
	// missing required resource fails the whole load; no partial bundle
	// is returned.
	LoadBundle(ctx context.Context, id string) (*Bundle, error)
	// ImportBundle transactionally replaces the race with the same ID.
	ImportBundle(ctx context.Context, b *Bundle) error
	DeleteRace(ctx context.Context, id string) error
}

// SQLiteStore implements Store on a libSQL database. The schema is owned
// by the migrations package; the db must be migrated before use.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListRaces(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_time, end_time, runner_count, total_stages
		FROM races ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []Summary
	for rows.Next() {
		var r Summary
		if err := rows.Scan(&r.ID, &r.Name, &r.StartTime, &r.EndTime, &r.RunnerCount, &r.TotalStages); err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

func (s *SQLiteStore) GetRace(ctx context.Context, id string) (*Detail, error) {
	meta, err := s.metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	runners, err := s.runners(ctx, id)
	if err != nil {
		return nil, err
	}
	geofences, err := s.geofences(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{ID: id, Metadata: meta, Runners: runners, Geofences: geofences}, nil
}

func (s *SQLiteStore) LoadBundle(ctx context.Context, id string) (*Bundle, error) {
	detail, err := s.GetRace(ctx, id)
	if err != nil {
		return nil, err
	}

	frames, err := s.frames(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading frames for %q: %w", id, err)
	}
	scoring, err := s.scoring(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading scoring for %q: %w", id, err)
	}

	return &Bundle{
		ID:        id,
		Metadata:  detail.Metadata,
		Geofences: detail.Geofences,
		Runners:   detail.Runners,
		Positions: frames,
		Scoring:   scoring,
	}, nil
}

func (s *SQLiteStore) ImportBundle(ctx context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bundle: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Replace semantics: re-importing a race ID drops the old data.
	if _, err := tx.ExecContext(ctx, `DELETE FROM races WHERE id = ?`, b.ID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO races (id, name, start_time, end_time, total_stages, runner_count, position_frames, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Metadata.Name, b.Metadata.StartTime, b.Metadata.EndTime,
		b.Metadata.TotalStages, len(b.Runners), len(b.Positions), b.Metadata.ExportedAt)
	if err != nil {
		return err
	}

	for _, f := range b.Positions {
		positions, err := json.Marshal(f.Positions)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO race_frames (race_id, t, positions) VALUES (?, ?, ?)
		`, b.ID, f.T, string(positions)); err != nil {
			return err
		}
	}

	for _, g := range b.Geofences {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO race_geofences (race_id, id, type, sequence, latitude, longitude, radius)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, g.ID, g.Type, g.Sequence, g.Latitude, g.Longitude, g.Radius); err != nil {
			return err
		}
	}

	for _, r := range b.Runners {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO race_runners (race_id, id, name, node_id, color)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, r.ID, r.Name, r.NodeID, r.Color); err != nil {
			return err
		}
	}

	for _, sc := range b.Scoring {
		stages, err := json.Marshal(sc.Stages)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO race_scoring (race_id, runner, exited_start, enter_finish, total_run, total_stages, stages)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, sc.Runner, sc.ExitedStartTime, sc.EnterFinishTime, sc.TotalRunTime,
			sc.TotalStages, string(stages)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteRace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM races WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) metadata(ctx context.Context, id string) (Metadata, error) {
	var m Metadata
	err := s.db.QueryRowContext(ctx, `
		SELECT name, start_time, end_time, total_stages, runner_count, position_frames, exported_at
		FROM races WHERE id = ?
	`, id).Scan(&m.Name, &m.StartTime, &m.EndTime, &m.TotalStages, &m.RunnerCount, &m.PositionFrames, &m.ExportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *SQLiteStore) runners(ctx context.Context, id string) ([]Runner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, node_id, color FROM race_runners WHERE race_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runners []Runner
	for rows.Next() {
		var r Runner
		if err := rows.Scan(&r.ID, &r.Name, &r.NodeID, &r.Color); err != nil {
			return nil, err
		}
		runners = append(runners, r)
	}
	return runners, rows.Err()
}

func (s *SQLiteStore) geofences(ctx context.Context, id string) ([]Geofence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, sequence, latitude, longitude, radius
		FROM race_geofences WHERE race_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var geofences []Geofence
	for rows.Next() {
		var g Geofence
		var seq sql.NullInt64
		if err := rows.Scan(&g.ID, &g.Type, &seq, &g.Latitude, &g.Longitude, &g.Radius); err != nil {
			return nil, err
		}
		if seq.Valid {
			n := int(seq.Int64)
			g.Sequence = &n
		}
		geofences = append(geofences, g)
	}
	return geofences, rows.Err()
}

func (s *SQLiteStore) frames(ctx context.Context, id string) ([]replay.Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t, positions FROM race_frames WHERE race_id = ? ORDER BY t
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []replay.Frame
	for rows.Next() {
		var f replay.Frame
		var positions string
		if err := rows.Scan(&f.T, &positions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(positions), &f.Positions); err != nil {
			return nil, fmt.Errorf("frame t=%v: %w", f.T, err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

func (s *SQLiteStore) scoring(ctx context.Context, id string) ([]Scoring, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT runner, exited_start, enter_finish, total_run, total_stages, stages
		FROM race_scoring WHERE race_id = ? ORDER BY runner
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Scoring
	for rows.Next() {
		var sc Scoring
		var stages string
		if err := rows.Scan(&sc.Runner, &sc.ExitedStartTime, &sc.EnterFinishTime,
			&sc.TotalRunTime, &sc.TotalStages, &stages); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stages), &sc.Stages); err != nil {
			return nil, fmt.Errorf("scoring for runner %d: %w", sc.Runner, err)
		}
		records = append(records, sc)
	}
	return records, rows.Err()
}
