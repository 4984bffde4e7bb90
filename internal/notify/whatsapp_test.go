package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"081234567890":     "6281234567890",
		"0812-3456-7890":   "6281234567890",
		"+62 812 3456 789": "628123456789",
		"6281234567890":    "6281234567890",
		"81234567890":      "6281234567890",
		"(0274) 555123":    "62274555123",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusMessage_Content(t *testing.T) {
	msg := StatusMessage("REQ-20250101-0001", "Surat Keterangan Domisili", domain.StatusCompleted, "Bawa materai")

	for _, want := range []string{
		"REQ-20250101-0001",
		"Surat Keterangan Domisili",
		"Selesai dan siap diambil",
		"Bawa materai",
		"membawa KTP asli",
		"Kantor Desa Tempursari",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	cancelled := StatusMessage("REQ-20250101-0002", "Surat Keterangan Usaha", domain.StatusCancelled, "")
	if !strings.Contains(cancelled, "hubungi kantor desa") {
		t.Errorf("cancelled footer missing:\n%s", cancelled)
	}
	if strings.Contains(cancelled, "Catatan:") {
		t.Errorf("empty notes must not render a notes line:\n%s", cancelled)
	}
}

func TestSendText_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "msg-1", "timestamp": 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "default")
	res := c.SendText(context.Background(), "081234567890", "halo")

	if !res.OK || res.MessageID != "msg-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotPath != "/api/sendText" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotBody["chatId"] != "6281234567890@c.us" {
		t.Fatalf("chatId = %v", gotBody["chatId"])
	}
	if gotBody["session"] != "default" || gotBody["text"] != "halo" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestSendText_GatewayErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":      "Unprocessable Entity",
			"message":    "session not connected",
			"statusCode": 422,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "default")
	res := c.SendText(context.Background(), "081234567890", "halo")

	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Err != "session not connected" {
		t.Fatalf("err = %q", res.Err)
	}
}

func TestSendText_TransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "default")
	res := c.SendText(context.Background(), "081234567890", "halo")
	if res.OK || res.Err == "" {
		t.Fatalf("expected transport failure, got %+v", res)
	}
}

func TestSessionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/sessions/default" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "WORKING"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "default")
	res := c.SessionStatus(context.Background())
	if !res.OK || res.Status != "WORKING" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestStartSession(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sessions/start" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "default"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "default")
	res := c.StartSession(context.Background())
	if !res.OK {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotBody["name"] != "default" {
		t.Fatalf("body = %v", gotBody)
	}
}
