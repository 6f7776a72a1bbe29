package db

import (
	"context"

	"github.com/crashalert/backend/internal/model"
)

func (db *Postgres) EnsureAccidentSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS accidents (
			id UUID PRIMARY KEY,
			camera_id TEXT NOT NULL,
			location TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			severity TEXT NOT NULL CHECK (severity IN ('low', 'medium', 'high')),
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'assigned', 'handled')),
			video TEXT,
			description TEXT,
			assigned_to TEXT
		)
		`,
		`CREATE INDEX IF NOT EXISTS accidents_camera_id_idx ON accidents(camera_id)`,
		`CREATE INDEX IF NOT EXISTS accidents_status_idx ON accidents(status)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const accidentColumns = `id, camera_id, location, date, severity, status, video, description, assigned_to`

func (db *Postgres) InsertAccident(ctx context.Context, accident *model.Accident) error {
	query := `
		INSERT INTO accidents (id, camera_id, location, date, severity, status, video)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.Pool.Exec(ctx, query,
		accident.ID,
		accident.CameraID,
		accident.Location,
		accident.Date,
		accident.Severity,
		accident.Status,
		accident.Video,
	)
	return err
}

func (db *Postgres) GetAccidentByID(ctx context.Context, id string) (*model.Accident, error) {
	var a model.Accident
	err := db.Pool.QueryRow(ctx, `SELECT `+accidentColumns+` FROM accidents WHERE id = $1`, id).Scan(
		&a.ID, &a.CameraID, &a.Location, &a.Date, &a.Severity, &a.Status, &a.Video, &a.Description, &a.AssignedTo,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccidentsByStatus - 상태 목록으로 사고 조회 (최신순)
func (db *Postgres) GetAccidentsByStatus(ctx context.Context, statuses []string) ([]model.Accident, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+accidentColumns+`
		FROM accidents
		WHERE status = ANY($1)
		ORDER BY date DESC
	`, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Accident
	for rows.Next() {
		var a model.Accident
		if err := rows.Scan(
			&a.ID, &a.CameraID, &a.Location, &a.Date, &a.Severity, &a.Status, &a.Video, &a.Description, &a.AssignedTo,
		); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if list == nil {
		list = []model.Accident{}
	}
	return list, rows.Err()
}

func (db *Postgres) UpdateAccidentStatus(ctx context.Context, id, status string, assignedTo *string) (*model.Accident, error) {
	var a model.Accident
	// handled로 넘어가도 기존 담당자는 유지
	err := db.Pool.QueryRow(ctx, `
		UPDATE accidents
		SET status = $2, assigned_to = COALESCE($3, assigned_to)
		WHERE id = $1
		RETURNING `+accidentColumns+`
	`, id, status, assignedTo).Scan(
		&a.ID, &a.CameraID, &a.Location, &a.Date, &a.Severity, &a.Status, &a.Video, &a.Description, &a.AssignedTo,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
