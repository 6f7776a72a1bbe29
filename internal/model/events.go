package model

import "encoding/json"

// 실시간 채널로 내려가는 이벤트 종류
const (
	EventNewAccident     = "new_accident"
	EventAccidentUpdate  = "accident_update"
	EventNewNotification = "new_notification"
	EventForceLogout     = "force_logout"
	EventAuthError       = "auth_error"
)

// Event - 실시간 채널의 전송 단위 {event, data}
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event envelope. Marshal failures return a
// zero Event and are treated as programmer error by callers.
func NewEvent(kind string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: kind, Data: raw}, nil
}

// ForceLogoutPayload - 강제 로그아웃 통지 본문
type ForceLogoutPayload struct {
	Message string `json:"message"`
}

type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
