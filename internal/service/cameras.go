package service

import (
	"context"

	"github.com/crashalert/backend/internal/db"
	"github.com/crashalert/backend/internal/model"
)

type cameraStore interface {
	CreateCamera(ctx context.Context, cameraID, location string, demoVideo *string, userIDs []int64) (*model.Camera, error)
	GetCameraByCameraID(ctx context.Context, cameraID string) (*model.Camera, error)
	ReplaceUserCameras(ctx context.Context, userID int64, cameraIDs []string) error
}

// CameraService - 카메라 및 시청 권한 배정 관리
//
// 배정 변경은 camera_users 엣지에만 기록합니다 (단일 원본).
type CameraService struct {
	repo cameraStore
}

func NewCameraService(repo cameraStore) *CameraService {
	return &CameraService{repo: repo}
}

func (s *CameraService) CreateCamera(ctx context.Context, req model.CreateCameraRequest) (*model.Camera, error) {
	if req.CameraID == "" || req.Location == "" {
		return nil, ErrInvalidInput
	}

	camera, err := s.repo.CreateCamera(ctx, req.CameraID, req.Location, req.DemoVideo, req.Users)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return camera, nil
}

func (s *CameraService) GetCamera(ctx context.Context, cameraID string) (*model.Camera, error) {
	camera, err := s.repo.GetCameraByCameraID(ctx, cameraID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return camera, nil
}

// AssignCameras - 한 사용자의 카메라 배정을 통째로 교체합니다.
func (s *CameraService) AssignCameras(ctx context.Context, req model.AssignCamerasRequest) error {
	if req.UserID == 0 {
		return ErrInvalidInput
	}
	return s.repo.ReplaceUserCameras(ctx, req.UserID, req.CameraIDs)
}
