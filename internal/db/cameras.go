package db

import (
	"context"

	"github.com/crashalert/backend/internal/model"
)

func (db *Postgres) EnsureCameraSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS cameras (
			id BIGSERIAL PRIMARY KEY,
			camera_id TEXT NOT NULL UNIQUE,
			location TEXT NOT NULL,
			demo_video TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS camera_users (
			camera_id TEXT NOT NULL REFERENCES cameras(camera_id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (camera_id, user_id)
		)
		`,
		`CREATE INDEX IF NOT EXISTS camera_users_user_id_idx ON camera_users(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateCamera(ctx context.Context, cameraID, location string, demoVideo *string, userIDs []int64) (*model.Camera, error) {
	var camera model.Camera
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO cameras (camera_id, location, demo_video, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, camera_id, location, demo_video, created_at
	`, cameraID, location, demoVideo).Scan(
		&camera.ID,
		&camera.CameraID,
		&camera.Location,
		&camera.DemoVideo,
		&camera.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, userID := range userIDs {
		if _, err := db.Pool.Exec(ctx, `
			INSERT INTO camera_users (camera_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, cameraID, userID); err != nil {
			return nil, err
		}
	}
	camera.Users = userIDs

	return &camera, nil
}

func (db *Postgres) GetCameraByCameraID(ctx context.Context, cameraID string) (*model.Camera, error) {
	var camera model.Camera
	err := db.Pool.QueryRow(ctx, `
		SELECT id, camera_id, location, demo_video, created_at
		FROM cameras
		WHERE camera_id = $1
	`, cameraID).Scan(
		&camera.ID,
		&camera.CameraID,
		&camera.Location,
		&camera.DemoVideo,
		&camera.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	users, err := db.GetCameraWatchers(ctx, cameraID)
	if err != nil {
		return nil, err
	}
	camera.Users = users

	return &camera, nil
}

// GetCameraWatchers - 카메라를 볼 수 있는 사용자 ID 목록
//
// 권한의 원본인 camera_users 엣지만 조회합니다. 카메라가 없으면 빈 목록입니다.
func (db *Postgres) GetCameraWatchers(ctx context.Context, cameraID string) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT user_id FROM camera_users WHERE camera_id = $1
	`, cameraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	if users == nil {
		users = []int64{}
	}
	return users, rows.Err()
}

// GetCamerasForUser - 사용자 기준 파생 뷰 (assignedCameras)
func (db *Postgres) GetCamerasForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT camera_id FROM camera_users WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cameras []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		cameras = append(cameras, id)
	}
	if cameras == nil {
		cameras = []string{}
	}
	return cameras, rows.Err()
}

// ReplaceUserCameras - 한 사용자의 카메라 배정을 엣지 테이블에서 통째로 교체
func (db *Postgres) ReplaceUserCameras(ctx context.Context, userID int64, cameraIDs []string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM camera_users WHERE user_id = $1`, userID); err != nil {
		return err
	}

	for _, cameraID := range cameraIDs {
		if _, err = tx.Exec(ctx, `
			INSERT INTO camera_users (camera_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, cameraID, userID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
