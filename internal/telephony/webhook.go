package telephony

import (
	"net/http"
	"strings"
)

// VoiceWebhookForm captures the subset of Twilio voice webhook fields we care
// about. Twilio sends application/x-www-form-urlencoded; custom parameters
// set by the Voice SDK client (requestId, callerName) arrive as plain form
// fields alongside the standard ones.
//
// Adapter-only type: routing decisions are not made here.
type VoiceWebhookForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string

	// RequestID correlates the leg with a CallRequest record.
	RequestID  string
	CallerName string
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhookForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhookForm{}, err
	}
	return VoiceWebhookForm{
		CallSid:    r.PostFormValue("CallSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		CallStatus: r.PostFormValue("CallStatus"),
		RequestID:  r.PostFormValue("requestId"),
		CallerName: r.PostFormValue("callerName"),
	}, nil
}

// ToRouteRequest lifts the raw form into the provider-agnostic routing input.
func (f VoiceWebhookForm) ToRouteRequest() RouteRequest {
	return RouteRequest{
		To:         f.To,
		From:       f.From,
		RequestID:  f.RequestID,
		CallerName: f.CallerName,
	}
}
