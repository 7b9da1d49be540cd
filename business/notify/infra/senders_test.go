package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
	"github.com/fd1az/dex-spread-monitor/internal/httpclient"
)

func newClient(t *testing.T) *httpclient.InstrumentedClient {
	t.Helper()
	c, err := httpclient.NewInstrumentedClient(httpclient.WithProviderName("test"))
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}
	return c
}

var testMessage = domain.Message{Title: "WETH spread 22.7 bps", Body: "Buy <quickswap> & sell"}

func TestTelegramSender_Send(t *testing.T) {
	var (
		path    string
		payload map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(newClient(t), srv.URL+"/", "123:abc", "-10042")
	if err := s.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if path != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if payload["chat_id"] != "-10042" || payload["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", payload)
	}
	text, _ := payload["text"].(string)
	if !strings.HasPrefix(text, "<b>WETH spread 22.7 bps</b>\n") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(text, "Buy &lt;quickswap&gt; &amp; sell") {
		t.Errorf("body not escaped: %q", text)
	}
}

func TestTelegramSender_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"ok":false,"description":"Unauthorized"}`},
		{"ok false", http.StatusOK, `{"ok":false,"description":"chat not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewTelegramSender(newClient(t), srv.URL, "t", "c")
			if err := s.Send(context.Background(), testMessage); err == nil {
				t.Error("Send succeeded, want error")
			}
		})
	}
}

func TestDiscordSender_Send(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(newClient(t), srv.URL+"/api/webhooks/1/x")
	if err := s.Send(context.Background(), testMessage); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(payload["content"], "**WETH spread 22.7 bps**\n```") {
		t.Errorf("content = %q", payload["content"])
	}
}

func TestDiscordSender_TruncatesLongContent(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(newClient(t), srv.URL)
	long := domain.Message{Title: "t", Body: strings.Repeat("x", 3000)}
	if err := s.Send(context.Background(), long); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(payload["content"]); n != discordContentLimit {
		t.Errorf("content length = %d, want %d", n, discordContentLimit)
	}
}

func TestDiscordSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewDiscordSender(newClient(t), srv.URL)
	if err := s.Send(context.Background(), testMessage); err == nil {
		t.Error("Send succeeded on 400")
	}
}
