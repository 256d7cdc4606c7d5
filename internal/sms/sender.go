package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valuablehost/hostpulse/internal/config"
	"github.com/valuablehost/hostpulse/internal/logging"
)

// Sender delivers one outbound SMS. Delivery is fire-and-forget from
// the core's perspective: a failure is reported per recipient and is
// never fatal to a batch.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// ErrSendFailed wraps provider-side delivery failures
var ErrSendFailed = errors.New("sms send failed")

// TwilioSender sends messages through the Twilio Messages REST API.
// The API is a single form POST, so it is called directly instead of
// pulling in the full provider SDK.
type TwilioSender struct {
	client              *http.Client
	baseURL             string
	accountSID          string
	authToken           string
	fromNumber          string
	messagingServiceSID string
}

// NewTwilioSender creates a Twilio-backed sender
func NewTwilioSender(cfg *config.SMSConfig) *TwilioSender {
	return &TwilioSender{
		client:              &http.Client{Timeout: 15 * time.Second},
		baseURL:             "https://api.twilio.com",
		accountSID:          cfg.AccountSID,
		authToken:           cfg.AuthToken,
		fromNumber:          cfg.FromNumber,
		messagingServiceSID: cfg.MessagingServiceSID,
	}
}

// Send delivers one message to a recipient
func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if t.messagingServiceSID != "" {
		form.Set("MessagingServiceSid", t.messagingServiceSID)
	} else {
		form.Set("From", t.fromNumber)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: provider returned %d: %s", ErrSendFailed, resp.StatusCode, detail)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used in
// development and when SMS is disabled.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender() *LogSender {
	return &LogSender{log: logging.NewLogger("sms")}
}

// Send records the message without delivering it
func (l *LogSender) Send(_ context.Context, to, body string) error {
	l.log.Info().
		Str("to", logging.MaskPhone(to)).
		Int("body_len", len(body)).
		Msg("SMS delivery skipped (log sender)")
	return nil
}
