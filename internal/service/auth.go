package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/crashalert/backend/internal/config"
	"github.com/crashalert/backend/internal/db"
	"github.com/crashalert/backend/internal/model"
)

const (
	refreshCookieName = "jwt"
	minUsernameLength = 3
	minPasswordLength = 8

	supersededMessage = "You have been logged in from another device"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrMisconfigured   = errors.New("auth config invalid")
)

// userStore / sessionStore - 서비스가 소비하는 저장소 인터페이스
type userStore interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
}

type sessionStore interface {
	InsertSession(ctx context.Context, session *model.Session) error
	GetSessionByRefreshHash(ctx context.Context, refreshHash string) (*model.Session, error)
	TouchSession(ctx context.Context, sessionID string, lastActive time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessionsByUser(ctx context.Context, userID int64) error
	RotateSessionRefreshHash(ctx context.Context, sessionID, oldHash, newHash string, lastActive time.Time) (bool, error)
}

// connectionEvictor - 레지스트리 중 auth가 필요로 하는 부분
type connectionEvictor interface {
	Evict(userID int64, message string) int
}

// PasswordVerifier - 비밀번호 검증을 불투명한 능력으로 추상화
type PasswordVerifier interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

type bcryptVerifier struct{}

func (bcryptVerifier) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (bcryptVerifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewBcryptVerifier returns the production password capability.
func NewBcryptVerifier() PasswordVerifier {
	return bcryptVerifier{}
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type SessionMeta struct {
	DeviceInfo string
	IPAddress  string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Session      model.SessionDescriptor
}

type AuthService struct {
	users     userStore
	sessions  sessionStore
	registry  connectionEvictor
	passwords PasswordVerifier

	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	cookieCfg     CookieConfig
}

type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

func NewAuthService(users userStore, sessions sessionStore, registry connectionEvictor, passwords PasswordVerifier, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: ACCESS_TOKEN_SECRET/REFRESH_TOKEN_SECRET are required", ErrMisconfigured)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		users:         users,
		sessions:      sessions,
		registry:      registry,
		passwords:     passwords,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// EnsureAdmin - 부팅 시 초기 관리자 계정 생성 (있으면 그대로 둠)
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	if err := validateCredentials(username, password); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}

	_, err = s.users.CreateUser(ctx, &model.User{
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Role:              model.RoleAdmin,
		SingleSessionOnly: true,
	})
	return err
}

// Register - 관리자가 신규 사용자를 생성합니다 (원본 시스템에는 공개 가입이 없음).
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest, superior string) (*model.User, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}
	if req.Role != model.RoleAdmin && req.Role != model.RoleUser {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &model.User{
		Username:          req.Username,
		Email:             req.Email,
		PasswordHash:      hash,
		Role:              req.Role,
		Superior:          &superior,
		SingleSessionOnly: true,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return user, nil
}

// Login - 자격 증명 검증, 단일 세션 정책 집행, 세션 생성, 토큰 발급
//
// single_session_only 사용자는 기존 세션과 라이브 연결이 모두 정리된 뒤에야
// 새 세션이 추가됩니다. 로그인이 항상 이전 세션을 이깁니다.
func (s *AuthService) Login(ctx context.Context, username, password string, meta SessionMeta) (*LoginResult, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}

	if user.SingleSessionOnly {
		if evicted := s.registry.Evict(user.ID, supersededMessage); evicted > 0 {
			log.Printf("[Auth] Forced disconnect of %d previous connection(s) for user %s", evicted, user.Username)
		}
		if err := s.sessions.DeleteSessionsByUser(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	refreshToken, refreshHash, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		RefreshHash: refreshHash,
		DeviceInfo:  orDefault(meta.DeviceInfo, "Unknown Device"),
		IPAddress:   orDefault(meta.IPAddress, "Unknown"),
	}
	if err := s.sessions.InsertSession(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		Session: model.SessionDescriptor{
			DeviceInfo:        session.DeviceInfo,
			LoginTime:         now,
			SingleSessionOnly: user.SingleSessionOnly,
		},
	}, nil
}

// Refresh - refresh 토큰 검증 후 액세스 토큰 재발급 + refresh 단일 사용 회전
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, int64, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", "", 0, ErrUnauthorized
	}

	userID, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		return "", "", 0, ErrUnauthorized
	}

	session, err := s.sessions.GetSessionByRefreshHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrSessionNotFound
		}
		return "", "", 0, err
	}
	if session.UserID != userID {
		return "", "", 0, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", 0, ErrUnauthorized
		}
		return "", "", 0, err
	}

	newToken, newHash, err := s.newRefreshToken(user.ID)
	if err != nil {
		return "", "", 0, err
	}

	rotated, err := s.sessions.RotateSessionRefreshHash(ctx, session.ID, session.RefreshHash, newHash, time.Now())
	if err != nil {
		return "", "", 0, err
	}
	if !rotated {
		// 같은 토큰으로 경합한 다른 요청이 먼저 회전을 끝낸 경우.
		return "", "", 0, ErrSessionNotFound
	}

	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", 0, err
	}

	return accessToken, newToken, expiresIn, nil
}

// Logout - 멱등: 쿠키가 없거나 세션을 못 찾아도 성공으로 처리합니다.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	session, err := s.sessions.GetSessionByRefreshHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if db.IsNoRows(err) {
			return nil
		}
		return err
	}

	if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
		return err
	}

	// 로그아웃한 기기의 라이브 연결 정리. 통지 없이 닫습니다.
	s.registry.Evict(session.UserID, "")
	return nil
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.accessSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{
		ID:       userID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *AuthService) generateAccessToken(user *model.User) (string, int64, error) {
	now := time.Now()
	claims := accessClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

// newRefreshToken - refresh JWT 서명 + 저장용 SHA-256 해시
//
// jti에 uuid를 넣어 같은 사용자가 같은 초에 두 번 로그인해도 토큰 값과
// 해시가 전역에서 유일하도록 합니다.
func (s *AuthService) newRefreshToken(userID int64) (string, string, error) {
	now := time.Now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return signed, hashRefreshToken(signed), nil
}

func (s *AuthService) verifyRefreshToken(tokenStr string) (int64, error) {
	claims := &refreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.refreshSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthorized
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}

func validateCredentials(username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if len(username) < minUsernameLength || len(username) > 64 {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > 128 {
		return ErrInvalidInput
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
