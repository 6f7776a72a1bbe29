package service

import (
	"context"
	"log"

	"github.com/crashalert/backend/internal/model"
)

// watcherResolver - 이벤트 대상 결정용 인터페이스
type watcherResolver interface {
	ResolveWatchers(ctx context.Context, cameraID string) ([]int64, error)
}

// connectionSender - 레지스트리 중 브로드캐스터가 쓰는 부분
type connectionSender interface {
	Send(userID int64, event model.Event) int
	SendToRole(role string, event model.Event) int
}

// Broadcaster - 권한 필터를 거친 이벤트 팬아웃
//
// 전송은 at-most-once이며 오프라인 사용자는 조용히 건너뜁니다.
// 어떤 실패도 이벤트를 만든 호출 경로로 전파하지 않습니다
// (사고 저장의 성패는 알림 성패와 무관해야 함).
type Broadcaster struct {
	resolver watcherResolver
	registry connectionSender
}

func NewBroadcaster(resolver watcherResolver, registry connectionSender) *Broadcaster {
	return &Broadcaster{resolver: resolver, registry: registry}
}

// PublishToCamera - 카메라 시청 권한자의 라이브 연결로만 이벤트를 전달합니다.
func (b *Broadcaster) PublishToCamera(ctx context.Context, cameraID, kind string, data any) {
	event, err := model.NewEvent(kind, data)
	if err != nil {
		log.Printf("[Broadcast] Failed to encode %s event for camera %s: %v", kind, cameraID, err)
		return
	}

	watchers, err := b.resolver.ResolveWatchers(ctx, cameraID)
	if err != nil {
		// 권한 조회 실패: 이 publish 한 건만 포기하고 로그를 남깁니다.
		// 큐잉/재시도는 하지 않습니다.
		log.Printf("[Broadcast] Failed to resolve watchers for camera %s: %v", cameraID, err)
		return
	}
	if len(watchers) == 0 {
		log.Printf("[Broadcast] No users are associated with camera ID %s", cameraID)
		return
	}

	delivered := 0
	for _, userID := range watchers {
		delivered += b.registry.Send(userID, event)
	}
	log.Printf("[Broadcast] %s dispatched to %d connection(s) of %d authorized user(s) for camera %s",
		kind, delivered, len(watchers), cameraID)
}

// NotifyAdmins - 운영자 알림: 역할이 admin인 연결 전체로 전달합니다.
func (b *Broadcaster) NotifyAdmins(notification model.NotificationPayload) {
	event, err := model.NewEvent(model.EventNewNotification, notification)
	if err != nil {
		log.Printf("[Broadcast] Failed to encode notification: %v", err)
		return
	}

	delivered := b.registry.SendToRole(model.RoleAdmin, event)
	log.Printf("[Broadcast] Notification dispatched to %d admin connection(s)", delivered)
}
