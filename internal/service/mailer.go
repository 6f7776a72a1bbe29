package service

import (
	"fmt"
	"log"

	"github.com/crashalert/backend/internal/model"
	tmpl "github.com/crashalert/backend/internal/template"
)

// emailSender - 메일 릴레이 클라이언트 인터페이스
type emailSender interface {
	IsConfigured() bool
	Send(to, subject, text string) error
}

// MailerService - 통지 메일 전송 (fire-and-forget)
//
// 전송은 고루틴에서 수행하고 실패는 로그만 남깁니다. 재시도 없음.
type MailerService struct {
	client     emailSender
	adminEmail string
}

func NewMailerService(client emailSender, adminEmail string) *MailerService {
	return &MailerService{client: client, adminEmail: adminEmail}
}

// SendAccidentEmail - 새 사고 통지 메일
func (s *MailerService) SendAccidentEmail(accident *model.Accident) {
	if !s.client.IsConfigured() {
		return
	}

	data := tmpl.AccidentDataFromModel(accident)
	body := tmpl.RenderBody(tmpl.DefaultAccidentBody, &data)
	subject := fmt.Sprintf("[CrashAlertAI] %s severity accident at %s", accident.Severity, accident.Location)

	go func() {
		if err := s.client.Send(s.adminEmail, subject, body); err != nil {
			log.Printf("[Mailer] Failed to send accident email: %v", err)
		}
	}()
}

// SendPasswordResetRequest - 비밀번호 재설정 요청을 관리자에게 통지
func (s *MailerService) SendPasswordResetRequest(username string) {
	if !s.client.IsConfigured() {
		return
	}

	subject := "[CrashAlertAI] Password reset requested"
	body := fmt.Sprintf("User %q has requested a password reset. Please follow up from the admin console.", username)

	go func() {
		if err := s.client.Send(s.adminEmail, subject, body); err != nil {
			log.Printf("[Mailer] Failed to send password reset request email: %v", err)
		}
	}()
}
