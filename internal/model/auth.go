package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Role            string   `json:"role"`
	AssignedCameras []string `json:"assignedCameras"`
}

// SessionDescriptor - 로그인 응답에 포함되는 세션 요약
type SessionDescriptor struct {
	DeviceInfo        string    `json:"deviceInfo"`
	LoginTime         time.Time `json:"loginTime"`
	SingleSessionOnly bool      `json:"singleSessionOnly"`
}

type AuthResponse struct {
	AccessToken string            `json:"accessToken"`
	ExpiresIn   int64             `json:"expiresIn"`
	Session     SessionDescriptor `json:"session"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthUser - 액세스 토큰 클레임에서 복원된 사용자
type AuthUser struct {
	ID       int64
	Username string
	Role     string
}

func (u *AuthUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	Role              string
	Superior          *string
	SingleSessionOnly bool
	CreatedAt         time.Time
}

// Session - refresh 토큰 한 개와 로그인 기기를 묶는 레코드
type Session struct {
	ID          string
	UserID      int64
	RefreshHash string
	DeviceInfo  string
	IPAddress   string
	LastActive  time.Time
	CreatedAt   time.Time
}
