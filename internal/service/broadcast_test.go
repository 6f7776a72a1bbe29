package service

import (
	"context"
	"errors"
	"testing"

	"github.com/crashalert/backend/internal/model"
)

type fakeResolver struct {
	watchers map[string][]int64
	err      error
}

func (f *fakeResolver) ResolveWatchers(_ context.Context, cameraID string) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.watchers[cameraID], nil
}

type fakeSender struct {
	// connected maps user ID to live connection count
	connected map[int64]int
	sentTo    []int64
	roleSends []string
}

func (f *fakeSender) Send(userID int64, _ model.Event) int {
	f.sentTo = append(f.sentTo, userID)
	return f.connected[userID]
}

func (f *fakeSender) SendToRole(role string, _ model.Event) int {
	f.roleSends = append(f.roleSends, role)
	return 1
}

func TestPublishToCameraFiltersByWatchers(t *testing.T) {
	// CAM_1은 사용자 1, 2에게 배정. 접속 중인 사용자는 1과 3.
	resolver := &fakeResolver{watchers: map[string][]int64{"CAM_1": {1, 2}}}
	sender := &fakeSender{connected: map[int64]int{1: 1, 3: 1}}
	b := NewBroadcaster(resolver, sender)

	b.PublishToCamera(context.Background(), "CAM_1", model.EventNewAccident, map[string]string{"cameraId": "CAM_1"})

	if len(sender.sentTo) != 2 {
		t.Fatalf("expected sends for the 2 watchers, got %v", sender.sentTo)
	}
	for _, userID := range sender.sentTo {
		if userID == 3 {
			t.Fatal("non-watcher must never be targeted, even while connected")
		}
	}
}

func TestPublishToCameraUnknownCamera(t *testing.T) {
	resolver := &fakeResolver{watchers: map[string][]int64{}}
	sender := &fakeSender{connected: map[int64]int{1: 1}}
	b := NewBroadcaster(resolver, sender)

	b.PublishToCamera(context.Background(), "CAM_MISSING", model.EventNewAccident, nil)

	if len(sender.sentTo) != 0 {
		t.Fatalf("unknown camera must produce no deliveries, got %v", sender.sentTo)
	}
}

func TestPublishToCameraResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("db down")}
	sender := &fakeSender{connected: map[int64]int{1: 1}}
	b := NewBroadcaster(resolver, sender)

	// 권한 조회 실패 시 이 publish 한 건만 포기 (재시도/큐잉 없음)
	b.PublishToCamera(context.Background(), "CAM_1", model.EventNewAccident, nil)

	if len(sender.sentTo) != 0 {
		t.Fatalf("resolver failure must abort the publish, got %v", sender.sentTo)
	}
}

func TestNotifyAdmins(t *testing.T) {
	sender := &fakeSender{}
	b := NewBroadcaster(&fakeResolver{}, sender)

	b.NotifyAdmins(model.NotificationPayload{Title: "New accident detected", Message: "test"})

	if len(sender.roleSends) != 1 || sender.roleSends[0] != model.RoleAdmin {
		t.Fatalf("expected one admin role send, got %v", sender.roleSends)
	}
}
