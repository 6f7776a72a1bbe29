package model

import "time"

// ============================================================================
// Accident 모델 (사고 감지 단위)
// ============================================================================

// 사고 상태: active -> assigned -> handled
const (
	AccidentActive   = "active"
	AccidentAssigned = "assigned"
	AccidentHandled  = "handled"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type Accident struct {
	ID          string    `json:"id"`
	CameraID    string    `json:"cameraId"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	Video       *string   `json:"video"`
	Description *string   `json:"description"`
	AssignedTo  *string   `json:"assignedTo"`
}

// CreateAccidentRequest - ML 감지 서비스가 내부 라우트로 전송하는 페이로드
type CreateAccidentRequest struct {
	CameraID string     `json:"cameraId"`
	Location string     `json:"location"`
	Date     *time.Time `json:"date"`
	Severity string     `json:"severity"`
	Video    *string    `json:"video"`
}

type UpdateAccidentStatusRequest struct {
	AccidentID string `json:"accident_id"`
	Status     string `json:"status"`
}

func ValidAccidentStatus(status string) bool {
	switch status {
	case AccidentActive, AccidentAssigned, AccidentHandled:
		return true
	}
	return false
}

func ValidSeverity(severity string) bool {
	switch severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}
