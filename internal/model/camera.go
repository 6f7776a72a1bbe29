package model

import "time"

// Camera - 관제 카메라 메타데이터
//
// Users는 camera_users 엣지에서 읽어온 시청 권한 사용자 ID 목록입니다.
// 권한의 원본은 항상 엣지 테이블이며 사용자 쪽 assignedCameras는 파생 뷰입니다.
type Camera struct {
	ID        int64     `json:"id"`
	CameraID  string    `json:"cameraId"`
	Location  string    `json:"location"`
	DemoVideo *string   `json:"demoVideo"`
	CreatedAt time.Time `json:"createdAt"`
	Users     []int64   `json:"users"`
}

type CreateCameraRequest struct {
	CameraID  string  `json:"cameraId"`
	Location  string  `json:"location"`
	DemoVideo *string `json:"demoVideo"`
	Users     []int64 `json:"users"`
}

type AssignCamerasRequest struct {
	UserID    int64    `json:"userId"`
	CameraIDs []string `json:"cameraIds"`
}
