package service

import "context"

// watcherStore - 카메라 권한 엣지 조회 인터페이스
type watcherStore interface {
	GetCameraWatchers(ctx context.Context, cameraID string) ([]int64, error)
	GetCamerasForUser(ctx context.Context, userID int64) ([]string, error)
}

// AuthzResolver - 카메라 리소스의 시청 권한자 조회
//
// 권한의 원본은 camera_users 엣지입니다. 조회 전용이며 부수효과가 없습니다.
type AuthzResolver struct {
	store watcherStore
}

func NewAuthzResolver(store watcherStore) *AuthzResolver {
	return &AuthzResolver{store: store}
}

// ResolveWatchers - 카메라를 볼 수 있는 사용자 ID 집합
//
// 모르는 카메라는 빈 집합이며 에러가 아닙니다. 저장소 장애만 에러로
// 전파합니다 (호출자가 해당 publish를 포기하도록).
func (r *AuthzResolver) ResolveWatchers(ctx context.Context, cameraID string) ([]int64, error) {
	return r.store.GetCameraWatchers(ctx, cameraID)
}

// AssignedCameras - 사용자 기준 파생 뷰 (목록 필터링용)
func (r *AuthzResolver) AssignedCameras(ctx context.Context, userID int64) ([]string, error) {
	return r.store.GetCamerasForUser(ctx, userID)
}
