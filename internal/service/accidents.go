package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/crashalert/backend/internal/db"
	"github.com/crashalert/backend/internal/model"
)

// accidentStore - 사고 저장소 인터페이스
type accidentStore interface {
	InsertAccident(ctx context.Context, accident *model.Accident) error
	GetAccidentByID(ctx context.Context, id string) (*model.Accident, error)
	GetAccidentsByStatus(ctx context.Context, statuses []string) ([]model.Accident, error)
	UpdateAccidentStatus(ctx context.Context, id, status string, assignedTo *string) (*model.Accident, error)
}

// eventPublisher - 사고 이벤트 팬아웃 인터페이스
type eventPublisher interface {
	PublishToCamera(ctx context.Context, cameraID, kind string, data any)
	NotifyAdmins(notification model.NotificationPayload)
}

// accidentMailer - 사고 이메일 통지 (fire-and-forget)
type accidentMailer interface {
	SendAccidentEmail(accident *model.Accident)
}

type AccidentService struct {
	repo   accidentStore
	authz  *AuthzResolver
	events eventPublisher
	mailer accidentMailer
}

func NewAccidentService(repo accidentStore, authz *AuthzResolver, events eventPublisher, mailer accidentMailer) *AccidentService {
	return &AccidentService{repo: repo, authz: authz, events: events, mailer: mailer}
}

// CreateAccident - ML 감지 서비스가 보낸 사고를 저장하고 통지합니다.
//
// 저장 성공 후의 브로드캐스트/이메일 실패는 호출자에게 전파되지 않습니다.
func (s *AccidentService) CreateAccident(ctx context.Context, req model.CreateAccidentRequest) (*model.Accident, error) {
	if req.CameraID == "" || req.Location == "" || !model.ValidSeverity(req.Severity) {
		return nil, ErrInvalidInput
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	accident := &model.Accident{
		ID:       uuid.NewString(),
		CameraID: req.CameraID,
		Location: req.Location,
		Date:     date,
		Severity: req.Severity,
		Status:   model.AccidentActive,
		Video:    req.Video,
	}

	if err := s.repo.InsertAccident(ctx, accident); err != nil {
		return nil, err
	}

	s.events.PublishToCamera(ctx, accident.CameraID, model.EventNewAccident, accident)
	s.events.NotifyAdmins(model.NotificationPayload{
		Title:   "New accident detected",
		Message: fmt.Sprintf("%s severity accident at %s (camera %s)", accident.Severity, accident.Location, accident.CameraID),
	})
	if s.mailer != nil {
		s.mailer.SendAccidentEmail(accident)
	}

	return accident, nil
}

// ChangeStatus - 사고 상태 전이 (active -> assigned -> handled)
//
// assigned로 바뀌면 수행한 사용자가 담당자가 됩니다.
func (s *AccidentService) ChangeStatus(ctx context.Context, accidentID, status string, actor *model.AuthUser) (*model.Accident, error) {
	if !model.ValidAccidentStatus(status) {
		return nil, ErrInvalidInput
	}

	var assignedTo *string
	if status == model.AccidentAssigned {
		assignedTo = &actor.Username
	}

	updated, err := s.repo.UpdateAccidentStatus(ctx, accidentID, status, assignedTo)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.events.PublishToCamera(ctx, updated.CameraID, model.EventAccidentUpdate, updated)

	return updated, nil
}

// GetAccident - 단건 조회. 관리자가 아니면 배정된 카메라의 사고만 볼 수 있습니다.
func (s *AccidentService) GetAccident(ctx context.Context, id string, caller *model.AuthUser) (*model.Accident, error) {
	accident, err := s.repo.GetAccidentByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !caller.IsAdmin() {
		assigned, err := s.authz.AssignedCameras(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		allowed := false
		for _, cameraID := range assigned {
			if cameraID == accident.CameraID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrForbidden
		}
	}

	return accident, nil
}

// ActiveAccidents - active/assigned 사고를 호출자 권한으로 필터링해 반환합니다.
// 관리자는 전체를 봅니다.
func (s *AccidentService) ActiveAccidents(ctx context.Context, caller *model.AuthUser) ([]model.Accident, error) {
	accidents, err := s.repo.GetAccidentsByStatus(ctx, []string{model.AccidentActive, model.AccidentAssigned})
	if err != nil {
		return nil, err
	}
	return s.filterForCaller(ctx, caller, accidents)
}

// HandledAccidents - 처리 완료된 사고 목록
func (s *AccidentService) HandledAccidents(ctx context.Context, caller *model.AuthUser) ([]model.Accident, error) {
	accidents, err := s.repo.GetAccidentsByStatus(ctx, []string{model.AccidentHandled})
	if err != nil {
		return nil, err
	}
	return s.filterForCaller(ctx, caller, accidents)
}

func (s *AccidentService) filterForCaller(ctx context.Context, caller *model.AuthUser, accidents []model.Accident) ([]model.Accident, error) {
	if caller.IsAdmin() {
		return accidents, nil
	}

	assigned, err := s.authz.AssignedCameras(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(assigned))
	for _, cameraID := range assigned {
		allowed[cameraID] = struct{}{}
	}

	filtered := make([]model.Accident, 0, len(accidents))
	for _, accident := range accidents {
		if _, ok := allowed[accident.CameraID]; ok {
			filtered = append(filtered, accident)
		}
	}
	if len(filtered) < len(accidents) {
		log.Printf("[Accidents] Filtered %d of %d accidents for user %s",
			len(accidents)-len(filtered), len(accidents), caller.Username)
	}
	return filtered, nil
}
