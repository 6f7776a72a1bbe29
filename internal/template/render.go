// Package template provides notification email body rendering.
//
// 지원하는 변수 형식:
//
//	{{accident.id}}, {{accident.camera_id}}, {{accident.location}},
//	{{accident.severity}}, {{accident.status}}, {{accident.date}}
package template

import (
	"strings"
	"time"

	"github.com/crashalert/backend/internal/model"
)

// AccidentData - 템플릿 렌더링에 사용할 사고 데이터
type AccidentData struct {
	ID       string
	CameraID string
	Location string
	Severity string
	Status   string
	Date     time.Time
}

// AccidentDataFromModel - model.Accident에서 AccidentData 생성
func AccidentDataFromModel(accident *model.Accident) AccidentData {
	return AccidentData{
		ID:       accident.ID,
		CameraID: accident.CameraID,
		Location: accident.Location,
		Severity: accident.Severity,
		Status:   accident.Status,
		Date:     accident.Date,
	}
}

// DefaultAccidentBody - 사고 통지 메일 기본 템플릿
const DefaultAccidentBody = `A new accident has been detected.

Camera:   {{accident.camera_id}}
Location: {{accident.location}}
Severity: {{accident.severity}}
Time:     {{accident.date}}

Accident ID: {{accident.id}}`

// RenderBody - 템플릿의 변수를 실제 값으로 치환
//
// nil로 전달된 항목의 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, accident *AccidentData) string {
	pairs := make([]string, 0, 12)

	if accident != nil {
		pairs = append(pairs,
			"{{accident.id}}", accident.ID,
			"{{accident.camera_id}}", accident.CameraID,
			"{{accident.location}}", accident.Location,
			"{{accident.severity}}", accident.Severity,
			"{{accident.status}}", accident.Status,
			"{{accident.date}}", accident.Date.Format(time.RFC3339),
		)
	} else {
		pairs = append(pairs,
			"{{accident.id}}", "",
			"{{accident.camera_id}}", "",
			"{{accident.location}}", "",
			"{{accident.severity}}", "",
			"{{accident.status}}", "",
			"{{accident.date}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
