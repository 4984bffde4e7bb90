// Package notify implements outbound WhatsApp notifications via a WAHA
// (WhatsApp HTTP API) gateway.
//
// This file provides the gateway client. The client is deliberately
// fire-and-forget friendly: transport failures and non-2xx responses are
// folded into a structured SendResult instead of being returned as errors,
// so callers can log and move on without wrapping every call in recovery
// logic. The core status update must never fail because the gateway is down.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desa-tempursari/layanan-backend/internal/domain"
)

// Sender is the narrow contract the dispatcher and services depend on.
type Sender interface {
	SendText(ctx context.Context, phone, text string) SendResult
}

// SendResult is the structured outcome of a gateway call. OK is false on any
// transport error or non-2xx response; Err then carries the reason.
type SendResult struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id,omitempty"`
	Err       string `json:"error,omitempty"`
}

// SessionResult is the outcome of a session status or start call.
type SessionResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Client talks to a WAHA gateway over HTTP. Authentication is a static
// X-Api-Key header; the session name selects the connected WhatsApp account.
type Client struct {
	BaseURL string
	APIKey  string
	Session string
	HTTP    *http.Client
}

// NewClient constructs a Client with a bounded default HTTP timeout so a
// wedged gateway cannot stall the dispatcher.
func NewClient(baseURL, apiKey, session string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Session: session,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// wahaError is the gateway's failure body: {error, message, statusCode}.
type wahaError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// wahaSendResponse is the gateway's success body for sendText.
type wahaSendResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// SendText delivers a text message to the phone number's WhatsApp chat.
// The number is normalized first (see NormalizePhone); malformed numbers are
// passed through best-effort and surface as a gateway-side failure.
func (c *Client) SendText(ctx context.Context, phone, text string) SendResult {
	body := map[string]any{
		"session": c.Session,
		"chatId":  NormalizePhone(phone) + "@c.us",
		"text":    text,
	}

	var out wahaSendResponse
	if errMsg := c.post(ctx, "/api/sendText", body, &out); errMsg != "" {
		return SendResult{OK: false, Err: errMsg}
	}
	return SendResult{OK: true, MessageID: out.ID}
}

// SessionStatus queries the gateway for the connectivity state of the
// configured session.
func (c *Client) SessionStatus(ctx context.Context) SessionResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/sessions/"+c.Session, nil)
	if err != nil {
		return SessionResult{OK: false, Err: err.Error()}
	}
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return SessionResult{OK: false, Err: err.Error()}
	}
	defer resp.Body.Close()

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return SessionResult{OK: false, Err: "invalid gateway response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := payload.Message
		if msg == "" {
			msg = fmt.Sprintf("session status check failed (%d)", resp.StatusCode)
		}
		return SessionResult{OK: false, Err: msg}
	}
	return SessionResult{OK: true, Status: payload.Status}
}

// StartSession asks the gateway to start the configured session.
func (c *Client) StartSession(ctx context.Context) SessionResult {
	body := map[string]any{
		"name": c.Session,
		"config": map[string]any{
			"webhooks": []any{},
			"debug":    false,
		},
	}
	if errMsg := c.post(ctx, "/api/sessions/start", body, nil); errMsg != "" {
		return SessionResult{OK: false, Err: errMsg}
	}
	return SessionResult{OK: true}
}

// post sends a JSON POST and decodes a success body into out (when non-nil).
// It returns "" on success and a reason string on any failure.
func (c *Client) post(ctx context.Context, endpoint string, body any, out any) string {
	raw, err := json.Marshal(body)
	if err != nil {
		return err.Error()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var we wahaError
		_ = json.NewDecoder(resp.Body).Decode(&we)
		switch {
		case we.Message != "":
			return we.Message
		case we.Error != "":
			return we.Error
		default:
			return fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return "invalid gateway response: " + err.Error()
		}
	}
	return ""
}

func (c *Client) auth(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
}

// NormalizePhone converts a local Indonesian phone number to the digits-only
// international form WAHA expects: strip non-digits, replace a leading "0"
// with "62", and prepend "62" when the prefix is still missing. No length or
// plausibility validation is performed; malformed input passes through
// best-effort.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if strings.HasPrefix(cleaned, "0") {
		cleaned = "62" + cleaned[1:]
	}
	if !strings.HasPrefix(cleaned, "62") {
		cleaned = "62" + cleaned
	}
	return cleaned
}

// statusPhrases are the notification wordings, which deliberately differ from
// the shorter CSV labels.
var statusPhrases = map[domain.RequestStatus]string{
	domain.StatusPending:   "Menunggu diproses",
	domain.StatusOnProcess: "Sedang diproses",
	domain.StatusCompleted: "Selesai dan siap diambil",
	domain.StatusCancelled: "Dibatalkan",
}

// StatusMessage renders the fixed status-update template sent to submitters.
func StatusMessage(requestNumber, serviceLabel string, status domain.RequestStatus, notes string) string {
	var sb strings.Builder
	sb.WriteString("🔔 *Update Status Permohonan*\n\n")
	fmt.Fprintf(&sb, "📋 Nomor Permohonan: *%s*\n", requestNumber)
	fmt.Fprintf(&sb, "📄 Jenis Layanan: *%s*\n", serviceLabel)
	fmt.Fprintf(&sb, "📊 Status: *%s*\n\n", statusPhrases[status])

	if notes != "" {
		fmt.Fprintf(&sb, "📝 Catatan: %s\n", notes)
	}
	switch status {
	case domain.StatusCompleted:
		sb.WriteString("✅ Silakan datang ke kantor desa untuk mengambil dokumen dengan membawa KTP asli.\n")
	case domain.StatusCancelled:
		sb.WriteString("❌ Silakan hubungi kantor desa untuk informasi lebih lanjut.\n")
	}

	sb.WriteString("\nTerima kasih telah menggunakan layanan kami.\nKantor Desa Tempursari")
	return sb.String()
}
