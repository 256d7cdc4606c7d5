package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/valuablehost/hostpulse/internal/ingest"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/middleware"
	"github.com/valuablehost/hostpulse/internal/monitoring"
	"github.com/valuablehost/hostpulse/internal/sms"
)

// handleInboundMessage receives a Twilio inbound SMS webhook and
// always answers 200 with a TwiML reply: the customer gets a response
// even when the evaluation cannot be stored, and Twilio never retries
// a delivery we have already answered.
func (s *APIServer) handleInboundMessage(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")

	if from == "" {
		// Not a Twilio-shaped request; nothing to reply to.
		c.String(http.StatusBadRequest, "missing From")
		return
	}

	result := s.ingestService.HandleInbound(c.Request.Context(), from, body, nowUTC())
	if result.Err != nil {
		logging.LogError(result.Err, middleware.GetRequestIDFromContext(c), "webhook", "ingest")
	}
	monitoring.RecordIngestion(ingestOutcome(result))
	monitoring.RecordWebhookReply(string(result.State))

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(sms.TwiML(result.Reply)))
}

func ingestOutcome(result ingest.Result) string {
	switch {
	case result.Duplicate:
		return "duplicate"
	case result.Err != nil:
		return "error"
	case result.State == ingest.StateAcknowledged:
		return "stored"
	default:
		return "rejected"
	}
}
