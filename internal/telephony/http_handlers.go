package telephony

import (
	"net/http"

	"pharmline/internal/callqueue"
	"pharmline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// VoiceWebhookHandler converts the Twilio voice webhook to internal types,
// resolves the routing instruction, and writes TwiML.
//
// Trust model: system-to-system at configuration level (the webhook URL and
// TwiML app binding are the shared secret); there is no per-user auth here.
type VoiceWebhookHandler struct {
	Router     Router
	Configured bool

	// Reconciler receives a best-effort ringing notification when the leg
	// carries a request id. Optional.
	Reconciler *callqueue.Reconciler
}

func (h VoiceWebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseVoiceWebhook(c.Request)
	if err != nil {
		log.Warn("voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if !h.Configured {
		twiml, err := RenderRejectTwiML()
		if err != nil {
			log.Error("reject twiml render failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
			return
		}
		writeTwiML(c, twiml)
		return
	}

	in := h.Router.RouteIncoming(form.ToRouteRequest())

	// The connect is underway; reflect it in the queue. Not on the critical
	// path of bridging the leg, so failures are logged and ignored.
	if h.Reconciler != nil && in.RequestID != "" {
		if _, err := h.Reconciler.Apply(c.Request.Context(), in.RequestID, callqueue.StatusRinging, callqueue.Actor{Role: callqueue.RoleBridge}); err != nil {
			log.Warn("ringing notification failed", "request_id", in.RequestID, "err", err)
		}
	}

	twiml, err := RenderRoutingTwiML(in)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	writeTwiML(c, twiml)
}

func writeTwiML(c *gin.Context, twiml string) {
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
