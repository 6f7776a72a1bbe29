package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crashalert/backend/internal/model"
	"github.com/crashalert/backend/internal/service"
)

type AuthHandler struct {
	svc     *service.AuthService
	cameras *service.CameraService
	mailer  *service.MailerService
}

func NewAuthHandler(svc *service.AuthService, cameras *service.CameraService, mailer *service.MailerService) *AuthHandler {
	return &AuthHandler{svc: svc, cameras: cameras, mailer: mailer}
}

// Login godoc
// @Summary Login
// @Description Issues an access token and sets the refresh token cookie (jwt).
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.AuthRequest true "Username and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	meta := service.SessionMeta{
		DeviceInfo: c.GetHeader("User-Agent"),
		IPAddress:  c.ClientIP(),
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password, meta)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
		Session:     result.Session,
	})
}

// Register godoc
// @Summary Register a new user (admin only)
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.RegisterRequest true "New user"
// @Success 201 {object} model.AuthMeResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	admin := GetAuthUser(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req, admin.Username)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	if len(req.AssignedCameras) > 0 {
		assign := model.AssignCamerasRequest{UserID: user.ID, CameraIDs: req.AssignedCameras}
		if err := h.cameras.AssignCameras(c.Request.Context(), assign); err != nil {
			// 계정은 이미 생성됨. 배정 실패만 알립니다.
			c.JSON(http.StatusCreated, gin.H{
				"userId":   user.ID,
				"username": user.Username,
				"role":     user.Role,
				"warning":  "user created but camera assignment failed",
			})
			return
		}
	}

	c.JSON(http.StatusCreated, model.AuthMeResponse{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Uses the refresh token cookie (jwt) and rotates it.
// @Tags auth
// @Produce json
// @Success 200 {object} model.RefreshResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	accessToken, newRefreshToken, expiresIn, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, newRefreshToken)
	c.JSON(http.StatusOK, model.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

// Logout godoc
// @Summary Logout
// @Description Removes the session (if any) and clears the cookie. Idempotent.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthLogoutResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	_ = h.svc.Logout(c.Request.Context(), refreshToken)
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// ForgotPassword godoc
// @Summary Request a password reset
// @Description Notifies an administrator by email. Always returns 200.
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// 계정 존재 여부를 응답으로 노출하지 않습니다.
	h.mailer.SendPasswordResetRequest(req.Username)
	c.JSON(http.StatusOK, model.StatusResponse{Status: "requested"})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func writeAuthError(c *gin.Context, err error) {
	switch err {
	case service.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case service.ErrUnauthorized, service.ErrSessionNotFound:
		// revoked와 expired를 구분해서 알려주지 않습니다.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case service.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case service.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
