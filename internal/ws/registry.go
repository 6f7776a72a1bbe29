package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/crashalert/backend/internal/model"
)

// Registry - 사용자 ID 기준의 라이브 연결 레지스트리
//
// 맵 접근은 레지스트리 락, 한 사용자의 연결 목록은 사용자별 락으로 보호합니다.
// 서로 무관한 사용자의 등록/해제가 직렬화되지 않도록 락을 분리했습니다.
// 락 순서는 항상 registry -> entry이며, 네트워크 쓰기(통지/종료)는 락을 놓은
// 뒤에만 수행합니다.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]*userEntry
}

type userEntry struct {
	mu      sync.Mutex
	clients []*Client
	// gone은 엔트리가 맵에서 제거된 뒤 true. 제거와 경합한 Register가
	// 고아 엔트리에 연결을 추가하는 것을 막습니다.
	gone bool
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]*userEntry)}
}

// Register - 인증이 끝난 연결을 등록합니다.
//
// singleSession 사용자의 기존 연결은 superseded 통지(force_logout)를 받고
// 닫힙니다. 통지와 종료는 사용자 락 바깥에서 실행됩니다.
func (r *Registry) Register(client *Client, singleSession bool) {
	for {
		entry := r.getOrCreate(client.UserID)

		entry.mu.Lock()
		if entry.gone {
			entry.mu.Unlock()
			continue
		}

		var superseded []*Client
		if singleSession {
			superseded = entry.clients
			entry.clients = []*Client{client}
		} else {
			entry.clients = append(entry.clients, client)
		}
		entry.mu.Unlock()

		for _, old := range superseded {
			supersede(old, "You have been logged in from another device")
		}
		return
	}
}

// Unregister - 정확히 이 연결만 제거합니다.
//
// 재접속 후 늦게 도착한 disconnect 콜백이 새 등록을 지우지 않도록
// 포인터 일치를 요구합니다.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	entry, ok := r.users[client.UserID]
	if !ok {
		r.mu.Unlock()
		return
	}

	entry.mu.Lock()
	removed := false
	for i, c := range entry.clients {
		if c == client {
			entry.clients = append(entry.clients[:i], entry.clients[i+1:]...)
			removed = true
			break
		}
	}
	if removed && len(entry.clients) == 0 {
		entry.gone = true
		delete(r.users, client.UserID)
	}
	entry.mu.Unlock()
	r.mu.Unlock()
}

// Evict - 강제 로그아웃: 해당 사용자의 모든 라이브 연결을 통지 후 종료합니다.
// 세션 스토어 상태와 무관하게 동작하며, 연결이 없으면 아무 일도 하지 않습니다.
func (r *Registry) Evict(userID int64, message string) int {
	r.mu.Lock()
	entry, ok := r.users[userID]
	var victims []*Client
	if ok {
		entry.mu.Lock()
		victims = entry.clients
		entry.clients = nil
		entry.gone = true
		delete(r.users, userID)
		entry.mu.Unlock()
	}
	r.mu.Unlock()

	for _, client := range victims {
		supersede(client, message)
	}
	return len(victims)
}

// Send - 한 사용자의 모든 라이브 연결로 이벤트를 큐잉합니다.
// 연결이 없으면 0을 반환하고 조용히 건너뜁니다.
func (r *Registry) Send(userID int64, event model.Event) int {
	r.mu.RLock()
	entry, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	entry.mu.Lock()
	clients := make([]*Client, len(entry.clients))
	copy(clients, entry.clients)
	entry.mu.Unlock()

	delivered := 0
	for _, client := range clients {
		if client.Enqueue(event) {
			delivered++
		}
	}
	return delivered
}

// SendToRole - 역할 기준 브로드캐스트 (운영자 알림용)
func (r *Registry) SendToRole(role string, event model.Event) int {
	r.mu.RLock()
	entries := make([]*userEntry, 0, len(r.users))
	for _, entry := range r.users {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, entry := range entries {
		entry.mu.Lock()
		clients := make([]*Client, len(entry.clients))
		copy(clients, entry.clients)
		entry.mu.Unlock()

		for _, client := range clients {
			if client.Role == role && client.Enqueue(event) {
				delivered++
			}
		}
	}
	return delivered
}

// ConnectionCount - 한 사용자의 라이브 연결 수 (테스트/진단용)
func (r *Registry) ConnectionCount(userID int64) int {
	r.mu.RLock()
	entry, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.clients)
}

func (r *Registry) getOrCreate(userID int64) *userEntry {
	r.mu.RLock()
	entry, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok = r.users[userID]; ok {
		return entry
	}
	entry = &userEntry{}
	r.users[userID] = entry
	return entry
}

// supersede - 종료 직전 in-band 통지를 큐잉하고 연결을 닫습니다.
// 통지는 writePump이 종료 시 큐를 비우면서 기록합니다.
// message가 비어 있으면 통지 없이 닫습니다 (본인 로그아웃 등).
func supersede(client *Client, message string) {
	if message != "" {
		payload, err := json.Marshal(model.ForceLogoutPayload{Message: message})
		if err == nil {
			client.Enqueue(model.Event{Event: model.EventForceLogout, Data: payload})
		} else {
			log.Printf("[Registry] Failed to marshal force_logout payload: %v", err)
		}
	}
	client.Close()
}
