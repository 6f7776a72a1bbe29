package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crashalert/backend/internal/model"
)

const (
	sendQueueSize = 64

	writeWait  = 5 * time.Second
	pongWait   = 20 * time.Second
	pingPeriod = 10 * time.Second
)

// Client - 인증이 끝난 실시간 연결 하나
//
// send 채널은 브로드캐스터와의 경합 때문에 절대 close하지 않습니다.
// 종료 신호는 done 채널로만 전달합니다 (Close는 멱등).
type Client struct {
	UserID   int64
	Username string
	Role     string

	conn *websocket.Conn
	send chan model.Event

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, user *model.AuthUser) *Client {
	return &Client{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		conn:     conn,
		send:     make(chan model.Event, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// Enqueue - 이벤트를 송신 큐에 넣습니다. 큐가 가득 차거나 이미 종료 중이면
// 버립니다 (at-most-once, 재전송 없음).
func (c *Client) Enqueue(event model.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close signals the pumps to stop. Idempotent; never closes send.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump - 연결당 단일 writer 고루틴
//
// 큐 적재 순서대로 기록하므로 한 연결 안에서는 publish 순서가 보존됩니다.
// 종료 시 큐에 남은 이벤트(force_logout 통지 등)를 마저 기록한 뒤
// close 프레임을 보냅니다.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			if !c.writeEvent(event) {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.drain()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) drain() {
	for {
		select {
		case event := <-c.send:
			if !c.writeEvent(event) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) writeEvent(event model.Event) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(event) == nil
}

// readPump - 클라이언트는 이벤트를 수신만 하므로 들어오는 프레임은 버리고
// pong으로 read deadline만 갱신합니다. 읽기 오류는 연결 종료로 간주합니다.
func (c *Client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
