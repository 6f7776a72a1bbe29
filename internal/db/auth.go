package db

import (
	"context"
	"time"

	"github.com/crashalert/backend/internal/model"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
			superior TEXT,
			single_session_only BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			refresh_hash TEXT NOT NULL UNIQUE,
			device_info TEXT NOT NULL DEFAULT 'Unknown Device',
			ip_address TEXT NOT NULL DEFAULT 'Unknown',
			last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS sessions_user_id_idx ON sessions(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role, superior, single_session_only, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, username, email, password_hash, role, superior, single_session_only, created_at
	`
	var created model.User
	err := db.Pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Superior,
		user.SingleSessionOnly,
	).Scan(
		&created.ID,
		&created.Username,
		&created.Email,
		&created.PasswordHash,
		&created.Role,
		&created.Superior,
		&created.SingleSessionOnly,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (db *Postgres) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `WHERE username = $1`, username)
}

func (db *Postgres) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = $1`, userID)
}

func (db *Postgres) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, superior, single_session_only, created_at
		FROM users
	` + where
	var user model.User
	err := db.Pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Superior,
		&user.SingleSessionOnly,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) InsertSession(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_hash, device_info, ip_address, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := db.Pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshHash,
		session.DeviceInfo,
		session.IPAddress,
	)
	return err
}

func (db *Postgres) GetSessionByRefreshHash(ctx context.Context, refreshHash string) (*model.Session, error) {
	query := `
		SELECT id, user_id, refresh_hash, device_info, ip_address, last_active, created_at
		FROM sessions
		WHERE refresh_hash = $1
	`
	var session model.Session
	err := db.Pool.QueryRow(ctx, query, refreshHash).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshHash,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.LastActive,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (db *Postgres) TouchSession(ctx context.Context, sessionID string, lastActive time.Time) error {
	_, err := db.Pool.Exec(ctx, `UPDATE sessions SET last_active = $2 WHERE id = $1`, sessionID, lastActive)
	return err
}

func (db *Postgres) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (db *Postgres) DeleteSessionsByUser(ctx context.Context, userID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// RotateSessionRefreshHash - refresh 토큰 회전
//
// 이전 해시가 아직 유효한 경우에만 새 해시로 교체합니다. 같은 UPDATE 한 번으로
// 이전 값 제거와 새 값 등록이 끝나므로 두 값이 동시에 유효한 구간이 없습니다.
// 경합으로 이미 회전된 뒤라면 영향 행이 0이 되어 false를 반환합니다.
func (db *Postgres) RotateSessionRefreshHash(ctx context.Context, sessionID, oldHash, newHash string, lastActive time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE sessions
		SET refresh_hash = $3, last_active = $4
		WHERE id = $1 AND refresh_hash = $2
	`, sessionID, oldHash, newHash, lastActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
