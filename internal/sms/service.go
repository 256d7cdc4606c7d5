package sms

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/valuablehost/hostpulse/internal/config"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/models"
)

// phoneRegex matches E.164 formatted numbers
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidPhone reports whether a phone number is E.164 formatted
func ValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// BatchResult reports per-recipient outcomes of one send batch
type BatchResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// PendingRecorder records the phone-to-host mapping for each accepted
// send, so the reply can later be attributed.
type PendingRecorder interface {
	CreatePendingRequest(ctx context.Context, phone string, hostID int64, expiresAt time.Time) (*models.PendingRequest, error)
}

// Service sends evaluation request messages and records the pending
// request each accepted send creates.
type Service struct {
	sender     Sender
	hosts      PendingRecorder
	pendingTTL time.Duration
}

// NewService creates an SMS service
func NewService(sender Sender, hosts PendingRecorder, cfg *config.SMSConfig) *Service {
	return &Service{
		sender:     sender,
		hosts:      hosts,
		pendingTTL: cfg.PendingRequestTTL,
	}
}

// evaluationRequestBody is the Danish invitation text sent to customers
func evaluationRequestBody(hostName string) string {
	return fmt.Sprintf(`Tak for din oplevelse hos %s! 🌟

Hvordan var det? Svar med:
1-5 [din kommentar]

Eks: 5 Fantastisk oplevelse!

Din feedback hjælper os med at blive bedre.`, hostName)
}

// SendEvaluationRequests sends the evaluation invitation to each
// phone number for one host. Individual failures are collected, never
// fatal to the batch. Each delivered message records a pending
// request so the reply can be attributed to the host.
func (s *Service) SendEvaluationRequests(ctx context.Context, h *models.Host, phones []string, now time.Time) BatchResult {
	var result BatchResult
	body := evaluationRequestBody(h.Name)
	expiresAt := now.Add(s.pendingTTL)

	for _, phone := range phones {
		if !ValidPhone(phone) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid phone number: %s", phone))
			continue
		}

		if err := s.sender.Send(ctx, phone, body); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to send to %s: %v", phone, err))
			logging.LogSMSSent(h.ID, phone, "failed")
			continue
		}

		if _, err := s.hosts.CreatePendingRequest(ctx, phone, h.ID, expiresAt); err != nil {
			// Delivered but unattributable; surface it so the operator
			// can follow up.
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Sent to %s but failed to record request: %v", phone, err))
			logging.LogSMSSent(h.ID, phone, "unrecorded")
			continue
		}

		result.Sent++
		logging.LogSMSSent(h.ID, phone, "sent")
	}

	return result
}
