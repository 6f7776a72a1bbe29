package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crashalert/backend/internal/config"
	"github.com/crashalert/backend/internal/model"
)

type memUserStore struct {
	nextID int64
	users  map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	if _, ok := s.users[user.Username]; ok {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	s.nextID++
	stored := *user
	stored.ID = s.nextID
	s.users[user.Username] = &stored
	return &stored, nil
}

func (s *memUserStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if user, ok := s.users[username]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *memUserStore) GetUserByID(_ context.Context, userID int64) (*model.User, error) {
	for _, user := range s.users {
		if user.ID == userID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memSessionStore struct {
	sessions map[string]*model.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.Session)}
}

func (s *memSessionStore) InsertSession(_ context.Context, session *model.Session) error {
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *memSessionStore) GetSessionByRefreshHash(_ context.Context, refreshHash string) (*model.Session, error) {
	for _, session := range s.sessions {
		if session.RefreshHash == refreshHash {
			copied := *session
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memSessionStore) TouchSession(_ context.Context, sessionID string, lastActive time.Time) error {
	if session, ok := s.sessions[sessionID]; ok {
		session.LastActive = lastActive
	}
	return nil
}

func (s *memSessionStore) DeleteSession(_ context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}

func (s *memSessionStore) DeleteSessionsByUser(_ context.Context, userID int64) error {
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *memSessionStore) RotateSessionRefreshHash(_ context.Context, sessionID, oldHash, newHash string, lastActive time.Time) (bool, error) {
	session, ok := s.sessions[sessionID]
	if !ok || session.RefreshHash != oldHash {
		return false, nil
	}
	session.RefreshHash = newHash
	session.LastActive = lastActive
	return true, nil
}

type evictCall struct {
	userID  int64
	message string
}

type fakeEvictor struct {
	calls []evictCall
	// evicted is returned as the live-connection count for each call
	evicted int
}

func (f *fakeEvictor) Evict(userID int64, message string) int {
	f.calls = append(f.calls, evictCall{userID: userID, message: message})
	return f.evicted
}

// plainVerifier - 테스트에서 bcrypt 비용을 피하기 위한 가짜 구현
type plainVerifier struct{}

func (plainVerifier) Hash(plain string) (string, error) { return "h!" + plain, nil }
func (plainVerifier) Verify(plain, hash string) bool    { return hash == "h!"+plain }

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:   "test-access-secret",
		RefreshSecret:  "test-refresh-secret",
		JWTAccessTTL:   "15m",
		JWTRefreshTTL:  "24h",
		CookiePath:     "/",
		CookieSecure:   "true",
		CookieSameSite: "none",
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *memUserStore, *memSessionStore, *fakeEvictor) {
	t.Helper()
	users := newMemUserStore()
	sessions := newMemSessionStore()
	evictor := &fakeEvictor{}
	svc, err := NewAuthService(users, sessions, evictor, plainVerifier{}, testAuthConfig())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, users, sessions, evictor
}

func seedUser(t *testing.T, users *memUserStore, username, password string, singleSession bool) *model.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), &model.User{
		Username:          username,
		Email:             username + "@example.com",
		PasswordHash:      "h!" + password,
		Role:              model.RoleUser,
		SingleSessionOnly: singleSession,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	svc, users, sessions, evictor := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()
	meta := SessionMeta{DeviceInfo: "test-agent", IPAddress: "127.0.0.1"}

	first, err := svc.Login(ctx, "alice", "password123", meta)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Login(ctx, "alice", "password123", meta)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if len(sessions.sessions) != 1 {
		t.Fatalf("single-session user must end with exactly 1 session, got %d", len(sessions.sessions))
	}
	if len(evictor.calls) != 2 {
		t.Fatalf("expected eviction on every single-session login, got %d", len(evictor.calls))
	}
	if evictor.calls[1].message == "" {
		t.Fatal("superseded connections must receive a human-readable notice")
	}

	// 이전 로그인의 refresh 토큰은 더 이상 유효하지 않아야 함
	if _, _, _, err := svc.Refresh(ctx, first.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("old refresh token must be rejected, got %v", err)
	}
	if _, _, _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current refresh token must work: %v", err)
	}
}

func TestLoginMultiSessionKeepsSessions(t *testing.T) {
	svc, users, sessions, evictor := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", false)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "alice", "password123", SessionMeta{}); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "password123", SessionMeta{}); err != nil {
		t.Fatalf("second login: %v", err)
	}

	if len(sessions.sessions) != 2 {
		t.Fatalf("multi-session user keeps both sessions, got %d", len(sessions.sessions))
	}
	if len(evictor.calls) != 0 {
		t.Fatalf("no eviction expected for multi-session user, got %d", len(evictor.calls))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "alice", "wrong-password", SessionMeta{}); err != ErrUnauthorized {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123", SessionMeta{}); err != ErrUnauthorized {
		t.Fatalf("unknown user: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, "al", "password123", SessionMeta{}); err != ErrInvalidInput {
		t.Fatalf("short username: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "short", SessionMeta{}); err != ErrInvalidInput {
		t.Fatalf("short password: expected ErrInvalidInput, got %v", err)
	}
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()

	result, err := svc.Login(ctx, "alice", "password123", SessionMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	accessToken, rotated, expiresIn, err := svc.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if accessToken == "" || expiresIn <= 0 {
		t.Fatal("refresh must issue a fresh access token")
	}
	if rotated == result.RefreshToken {
		t.Fatal("refresh token must rotate on every use")
	}

	// 사용한 토큰 재제출은 거부
	if _, _, _, err := svc.Refresh(ctx, result.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("reused refresh token: expected ErrSessionNotFound, got %v", err)
	}
	// 회전된 토큰은 계속 유효
	if _, _, _, err := svc.Refresh(ctx, rotated); err != nil {
		t.Fatalf("rotated token must stay valid: %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, _, err := svc.Refresh(ctx, ""); err != ErrUnauthorized {
		t.Fatalf("empty token: expected ErrUnauthorized, got %v", err)
	}
	if _, _, _, err := svc.Refresh(ctx, "not-a-jwt"); err != ErrUnauthorized {
		t.Fatalf("malformed token: expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, users, sessions, evictor := newTestAuthService(t)
	user := seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()

	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("logout without cookie: %v", err)
	}

	result, err := svc.Login(ctx, "alice", "password123", SessionMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("logout must remove the session, got %d left", len(sessions.sessions))
	}

	// 본인 로그아웃은 통지 없이 연결을 정리
	last := evictor.calls[len(evictor.calls)-1]
	if last.userID != user.ID || last.message != "" {
		t.Fatalf("expected silent eviction of user %d, got %+v", user.ID, last)
	}

	// 같은 토큰으로 다시 로그아웃해도 성공
	if err := svc.Logout(ctx, result.RefreshToken); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()

	result, err := svc.Login(ctx, "alice", "password123", SessionMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if user.Username != "alice" || user.Role != model.RoleUser {
		t.Fatalf("unexpected claims: %+v", user)
	}

	if _, err := svc.ParseAccessToken(result.RefreshToken); err != ErrUnauthorized {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}
	if _, err := svc.ParseAccessToken("garbage"); err != ErrUnauthorized {
		t.Fatalf("garbage token: expected ErrUnauthorized, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	seedUser(t, users, "alice", "password123", true)
	ctx := context.Background()

	req := model.RegisterRequest{
		Username: "alice",
		Password: "password456",
		Email:    "alice2@example.com",
		Role:     model.RoleUser,
	}
	if _, err := svc.Register(ctx, req, "root"); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "root", "password123", "root@example.com"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := svc.EnsureAdmin(ctx, "root", "password123", "root@example.com"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected a single admin account, got %d users", len(users.users))
	}
	admin := users.users["root"]
	if admin.Role != model.RoleAdmin || !admin.SingleSessionOnly {
		t.Fatalf("unexpected admin record: %+v", admin)
	}
}

func TestNewAuthServiceRejectsSharedSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.RefreshSecret = cfg.AccessSecret

	if _, err := NewAuthService(newMemUserStore(), newMemSessionStore(), &fakeEvictor{}, plainVerifier{}, cfg); err == nil {
		t.Fatal("identical access/refresh secrets must be rejected")
	}
}
