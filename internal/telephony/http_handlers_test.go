package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pharmline/internal/callqueue"

	"github.com/gin-gonic/gin"
)

func voiceRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleVoice_RejectsWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := VoiceWebhookHandler{Router: NewRouter("pharmacist"), Configured: false}
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(url.Values{"From": {"client:user_abc"}}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Reject") {
		t.Fatalf("expected reject twiml:\n%s", w.Body.String())
	}
}

func TestHandleVoice_RoutesAndMarksRinging(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := callqueue.NewMemoryStore()
	now := time.Unix(1700000000, 0).UTC()
	rec := callqueue.CallRequest{
		ID:        "req-1",
		UserID:    "u1",
		Identity:  "user_u1",
		Status:    callqueue.StatusRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := gin.New()
	h := VoiceWebhookHandler{
		Router:     NewRouter("pharmacist"),
		Configured: true,
		Reconciler: callqueue.NewReconciler(store, callqueue.NewRebalancer(store)),
	}
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	form := url.Values{
		"From":       {"client:user_u1"},
		"requestId":  {"req-1"},
		"callerName": {"Jo"},
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(form))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<Identity>pharmacist</Identity>") {
		t.Fatalf("expected dial to pharmacist:\n%s", body)
	}
	if !strings.Contains(body, `value="req-1"`) {
		t.Fatalf("expected request id parameter:\n%s", body)
	}

	got, err := store.Get(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != callqueue.StatusRinging {
		t.Fatalf("expected ringing, got %s", got.Status)
	}
}

func TestHandleVoice_UnknownRequestStillBridges(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := callqueue.NewMemoryStore()
	r := gin.New()
	h := VoiceWebhookHandler{
		Router:     NewRouter("pharmacist"),
		Configured: true,
		Reconciler: callqueue.NewReconciler(store, callqueue.NewRebalancer(store)),
	}
	r.POST("/webhooks/twilio/voice", h.HandleVoice)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, voiceRequest(url.Values{"requestId": {"missing"}}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Dial>") {
		t.Fatalf("expected dial twiml:\n%s", w.Body.String())
	}
}
