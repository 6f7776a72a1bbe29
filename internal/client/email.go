// 외부 메일 릴레이 API와 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 구조체 및 공통 메서드 정의
//
// 환경변수:
//   - EMAIL_RELAY_URL: 메일 릴레이 API 엔드포인트
//   - EMAIL_RELAY_API_KEY: API 키
//   - EMAIL_FROM: 발신자 표기
//
// 통지 성격의 메일이므로 실패는 로그만 남기고 재시도하지 않습니다.

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailClient(릴레이 접속 정보) 구조체
type EmailClient struct {
	relayURL   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// EmailMessage(메일 내용) 구조체
type EmailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// EmailResponse(릴레이 응답) 구조체
type EmailResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewEmailClient(relayURL, apiKey, from string) *EmailClient {
	return &EmailClient{
		relayURL: relayURL,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// 릴레이 URL과 API 키가 모두 설정되어 있는지 체크
func (c *EmailClient) IsConfigured() bool {
	return c.relayURL != "" && c.apiKey != ""
}

// Send - 단건 메일 전송
func (c *EmailClient) Send(to, subject, text string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("email relay URL or API key not configured")
	}
	if !emailPattern.MatchString(to) {
		return fmt.Errorf("invalid recipient email address: %s", to)
	}

	msg := EmailMessage{
		From:    c.from,
		To:      to,
		Subject: subject,
		Text:    text,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest("POST", c.relayURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var relayResp EmailResponse
		if err := json.Unmarshal(body, &relayResp); err == nil && relayResp.Error != "" {
			return fmt.Errorf("email relay error: %s", relayResp.Error)
		}
		return fmt.Errorf("email relay returned status %d", resp.StatusCode)
	}

	return nil
}
