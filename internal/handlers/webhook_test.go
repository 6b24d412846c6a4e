package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/services"
)

type stubMailer struct {
	calls int
	err   error
}

func (m *stubMailer) SendAlert(subject, htmlBody string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "<stub@cipulse>", nil
}

func webhookRouter(secret string, mailer services.AlertSender) *gin.Engine {
	handler := NewWebhookHandler(services.NewWebhookService(mailer), secret)
	router := gin.New()
	router.POST("/api/webhook/github", handler.HandleGitHubWebhook)
	return router
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, event string, body []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/webhook/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	router.ServeHTTP(w, req)
	return w
}

func failureBody(t *testing.T, conclusion string) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"action": "completed",
		"workflow_run": map[string]interface{}{
			"id":          42,
			"name":        "CI",
			"status":      "completed",
			"conclusion":  conclusion,
			"head_branch": "main",
			"head_sha":    "abc1234",
			"html_url":    "https://github.com/octo/hello/actions/runs/42",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	mailer := &stubMailer{}
	router := webhookRouter("topsecret", mailer)

	body := failureBody(t, "failure")
	// Signature computed over a different body.
	w := postWebhook(router, "workflow_run", body, sign("topsecret", []byte("other")))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if mailer.calls != 0 {
		t.Error("rejected request must not trigger alerts")
	}
}

func TestWebhook_MissingSignatureRejectedWhenSecretSet(t *testing.T) {
	router := webhookRouter("topsecret", &stubMailer{})

	w := postWebhook(router, "workflow_run", failureBody(t, "failure"), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestWebhook_NoSecretAcceptsUnsigned(t *testing.T) {
	mailer := &stubMailer{}
	router := webhookRouter("", mailer)

	w := postWebhook(router, "workflow_run", failureBody(t, "failure"), "")
	if w.Code != http.StatusAccepted {
		t.Errorf("expected 202 in accept-all mode, got %d", w.Code)
	}
	if mailer.calls != 1 {
		t.Errorf("expected one alert, got %d", mailer.calls)
	}
}

func TestWebhook_WrongEventKindIgnored(t *testing.T) {
	mailer := &stubMailer{}
	router := webhookRouter("", mailer)

	w := postWebhook(router, "push", []byte(`{"anything":"goes"}`), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for non workflow_run event, got %d", w.Code)
	}
	if mailer.calls != 0 {
		t.Error("ignored event must have no side effects")
	}
}

func TestWebhook_MissingRunPayloadIsBadRequest(t *testing.T) {
	router := webhookRouter("", &stubMailer{})

	w := postWebhook(router, "workflow_run", []byte(`{"action":"completed"}`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without workflow_run object, got %d", w.Code)
	}
}

func TestWebhook_MalformedJSONIsBadRequest(t *testing.T) {
	router := webhookRouter("", &stubMailer{})

	w := postWebhook(router, "workflow_run", []byte(`{not json`), "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestWebhook_FailureDispatchesAlert(t *testing.T) {
	mailer := &stubMailer{}
	router := webhookRouter("topsecret", mailer)

	body := failureBody(t, "timed_out")
	w := postWebhook(router, "workflow_run", body, sign("topsecret", body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if mailer.calls != 1 {
		t.Errorf("expected exactly one alert, got %d", mailer.calls)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["ok"] != true || resp["messageId"] != "<stub@cipulse>" {
		t.Errorf("unexpected response body: %v", resp)
	}
}

func TestWebhook_SuccessConclusionIgnored(t *testing.T) {
	mailer := &stubMailer{}
	router := webhookRouter("", mailer)

	w := postWebhook(router, "workflow_run", failureBody(t, "success"), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for success conclusion, got %d", w.Code)
	}
	if mailer.calls != 0 {
		t.Error("success must not trigger alerts")
	}
}

func TestWebhook_DeliveryFailureIs500(t *testing.T) {
	mailer := &stubMailer{err: &services.DeliveryError{Err: errors.New("smtp refused")}}
	router := webhookRouter("", mailer)

	w := postWebhook(router, "workflow_run", failureBody(t, "failure"), "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on delivery failure, got %d", w.Code)
	}
	if mailer.calls != 1 {
		t.Errorf("no retry allowed, got %d calls", mailer.calls)
	}
}
