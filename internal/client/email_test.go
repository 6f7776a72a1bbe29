package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmailClientIsConfigured(t *testing.T) {
	if NewEmailClient("", "", "no-reply@example.com").IsConfigured() {
		t.Fatal("missing relay URL must report unconfigured")
	}
	if NewEmailClient("http://relay", "", "no-reply@example.com").IsConfigured() {
		t.Fatal("missing API key must report unconfigured")
	}
	if !NewEmailClient("http://relay", "key", "no-reply@example.com").IsConfigured() {
		t.Fatal("expected configured client")
	}
}

func TestEmailClientSend(t *testing.T) {
	var received EmailMessage
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "test-key", "CrashAlertAI <no-reply@example.com>")
	if err := c.Send("admin@example.com", "subject", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if auth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
	if received.To != "admin@example.com" || received.Subject != "subject" || received.Text != "body" {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestEmailClientSendRelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"domain not verified"}`))
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "test-key", "no-reply@example.com")
	if err := c.Send("admin@example.com", "subject", "body"); err == nil {
		t.Fatal("expected relay error to surface")
	}
}

func TestEmailClientRejectsInvalidRecipient(t *testing.T) {
	c := NewEmailClient("http://relay", "key", "no-reply@example.com")
	if err := c.Send("not-an-address", "subject", "body"); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}
