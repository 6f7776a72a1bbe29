package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/crashalert/backend/internal/model"
)

type stubVerifier struct {
	tokens map[string]*model.AuthUser
}

func (s *stubVerifier) ParseAccessToken(token string) (*model.AuthUser, error) {
	if user, ok := s.tokens[token]; ok {
		return user, nil
	}
	return nil, errors.New("invalid token")
}

type stubUsers struct {
	singleSession bool
}

func (s *stubUsers) GetUserByID(_ context.Context, userID int64) (*model.User, error) {
	return &model.User{ID: userID, SingleSessionOnly: s.singleSession}, nil
}

func newTestServer(t *testing.T, registry *Registry, singleSession bool) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := &stubVerifier{tokens: map[string]*model.AuthUser{
		"good-token": {ID: 1, Username: "alice", Role: model.RoleUser},
	}}
	h := NewHandler(registry, verifier, &stubUsers{singleSession: singleSession}, nil)

	r := gin.New()
	r.GET("/ws", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func waitForConnections(t *testing.T, registry *Registry, userID int64, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if registry.ConnectionCount(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d connection(s), have %d", want, registry.ConnectionCount(userID))
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	registry := NewRegistry()
	srv := newTestServer(t, registry, true)

	conn := dial(t, srv, "bad-token")

	var event model.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("expected an in-band auth_error before close: %v", err)
	}
	if event.Event != model.EventAuthError {
		t.Fatalf("expected auth_error event, got %s", event.Event)
	}

	// 통지 뒤에는 정책 위반 코드로 닫혀야 함
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}

	if got := registry.ConnectionCount(1); got != 0 {
		t.Fatalf("rejected handshake must not register, count=%d", got)
	}
}

func TestHandshakeDeliversEvents(t *testing.T) {
	registry := NewRegistry()
	srv := newTestServer(t, registry, true)

	conn := dial(t, srv, "good-token")
	waitForConnections(t, registry, 1, 1)

	event, err := model.NewEvent(model.EventNewAccident, map[string]string{"cameraId": "CAM_1"})
	if err != nil {
		t.Fatal(err)
	}
	if got := registry.Send(1, event); got != 1 {
		t.Fatalf("expected delivery to 1 connection, got %d", got)
	}

	var received model.Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if received.Event != model.EventNewAccident {
		t.Fatalf("expected new_accident, got %s", received.Event)
	}
}

func TestSecondConnectionSupersedesFirst(t *testing.T) {
	registry := NewRegistry()
	srv := newTestServer(t, registry, true)

	first := dial(t, srv, "good-token")
	waitForConnections(t, registry, 1, 1)

	_ = dial(t, srv, "good-token")
	waitForConnections(t, registry, 1, 1)

	var event model.Event
	if err := first.ReadJSON(&event); err != nil {
		t.Fatalf("superseded connection must get a notice: %v", err)
	}
	if event.Event != model.EventForceLogout {
		t.Fatalf("expected force_logout, got %s", event.Event)
	}

	if _, _, err := first.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close after notice, got %v", err)
	}
}
