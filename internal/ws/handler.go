package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/crashalert/backend/internal/model"
)

// tokenVerifier - 핸드셰이크에서 액세스 토큰을 검증하는 인터페이스
type tokenVerifier interface {
	ParseAccessToken(token string) (*model.AuthUser, error)
}

// userReader - single_session_only 플래그 조회용 인터페이스
type userReader interface {
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
}

// Handler - 실시간 채널 핸드셰이크
//
// 연결 수립 직후 액세스 토큰을 검증하고, 실패하면 auth_error 이벤트를
// 기록한 뒤 정책 위반 코드로 닫습니다 (조용히 끊지 않음).
type Handler struct {
	registry *Registry
	verifier tokenVerifier
	users    userReader
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, verifier tokenVerifier, users userReader, allowedOrigins []string) *Handler {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			originMap[trimmed] = struct{}{}
		}
	}

	return &Handler{
		registry: registry,
		verifier: verifier,
		users:    users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := originMap[origin]
				return ok
			},
		},
	}
}

// Serve godoc
// @Summary Real-time event channel
// @Description WebSocket endpoint. Pass the access token via ?token= or Authorization header.
// @Tags realtime
// @Router /ws [get]
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade가 이미 HTTP 에러를 기록했습니다.
		return
	}

	token := bearerToken(c)
	user, err := h.verifier.ParseAccessToken(token)
	if err != nil {
		rejectConn(conn, "Authentication error: Invalid token")
		return
	}

	singleSession := true
	if record, err := h.users.GetUserByID(c.Request.Context(), user.ID); err == nil {
		singleSession = record.SingleSessionOnly
	} else {
		log.Printf("[WS] Failed to load user %d during handshake, assuming single session: %v", user.ID, err)
	}

	client := NewClient(conn, user)
	h.registry.Register(client, singleSession)
	log.Printf("[WS] User connected: %s (ID: %d)", user.Username, user.ID)

	go client.writePump()
	go client.readPump(func() {
		h.registry.Unregister(client)
		log.Printf("[WS] User disconnected: %s (ID: %d)", user.Username, user.ID)
	})
}

func bearerToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// rejectConn - 인증 실패 통지 후 종료
func rejectConn(conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(model.ForceLogoutPayload{Message: message})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(model.Event{Event: model.EventAuthError, Data: payload})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
	_ = conn.Close()
}
