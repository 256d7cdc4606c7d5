package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valuablehost/hostpulse/internal/badge"
	apierrors "github.com/valuablehost/hostpulse/internal/errors"
	"github.com/valuablehost/hostpulse/internal/host"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/monitoring"
)

// createHostRequest is the admin host onboarding payload
type createHostRequest struct {
	Name  string  `json:"name" binding:"required,min=1,max=200"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
}

// overrideRequest carries the new badge override value
type overrideRequest struct {
	Override string `json:"override" binding:"required"`
}

// sendEvaluationsRequest asks for the evaluation invitation to be
// sent to a batch of customers of one host
type sendEvaluationsRequest struct {
	HostID       int64    `json:"host_id" binding:"required"`
	PhoneNumbers []string `json:"phone_numbers" binding:"required,min=1,max=100"`
}

// adminEvaluation is an evaluation row as shown to admins, with the
// customer phone masked
type adminEvaluation struct {
	ID            int64     `json:"evaluation_id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment_text,omitempty"`
	CustomerPhone string    `json:"customer_phone"`
	CreatedAt     time.Time `json:"created_at"`
}

// handleCreateHost registers a new host
func (s *APIServer) handleCreateHost(c *gin.Context) {
	var req createHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	h, err := s.hostService.Create(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	monitoring.RecordHostRegistered()
	respondOK(c, http.StatusCreated, gin.H{"host": h})
}

// handleHostPerformance lists every host with its current badge
// status, ordered by windowed average
func (s *APIServer) handleHostPerformance(c *gin.Context) {
	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	performance, err := s.hostService.ListPerformance(c.Request.Context(), days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"hosts": performance})
}

// handleBadgeOverride forces or restores automatic badge computation
// for one host
func (s *APIServer) handleBadgeOverride(c *gin.Context) {
	hostID, err := parseHostID(c)
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("invalid host id"))
		return
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	override, err := s.hostService.SetOverride(c.Request.Context(), hostID, req.Override)
	if err != nil {
		switch {
		case errors.Is(err, badge.ErrInvalidOverride):
			respondError(c, apierrors.NewValidationError("override must be auto, on or off"))
		case errors.Is(err, host.ErrHostNotFound):
			respondError(c, apierrors.ErrHostNotFoundError)
		default:
			respondStoreError(c, err)
		}
		return
	}

	monitoring.RecordBadgeOverride(string(override))

	// The override takes effect on the next status read; return the
	// recomputed state so the admin sees the outcome immediately.
	status, err := s.hostService.BadgeStatus(c.Request.Context(), hostID, days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"override": override, "status": status})
}

// handleHostEvaluations lists a host's evaluations in the trailing
// window, newest first
func (s *APIServer) handleHostEvaluations(c *gin.Context) {
	hostID, err := parseHostID(c)
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("invalid host id"))
		return
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	if _, err := s.hostService.GetByID(c.Request.Context(), hostID); err != nil {
		if errors.Is(err, host.ErrHostNotFound) {
			respondError(c, apierrors.ErrHostNotFoundError)
			return
		}
		respondStoreError(c, err)
		return
	}

	evals, err := s.store.QueryWindow(c.Request.Context(), hostID, days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	listing := make([]adminEvaluation, 0, len(evals))
	for _, e := range evals {
		listing = append(listing, adminEvaluation{
			ID:            e.ID,
			Rating:        e.Rating,
			Comment:       e.Comment,
			CustomerPhone: logging.MaskPhone(e.CustomerPhone),
			CreatedAt:     e.CreatedAt,
		})
	}

	respondOK(c, http.StatusOK, gin.H{"evaluations": listing})
}

// handleSendEvaluations sends the evaluation invitation SMS to a
// batch of customer numbers for one host
func (s *APIServer) handleSendEvaluations(c *gin.Context) {
	var req sendEvaluationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	h, err := s.hostService.GetByID(c.Request.Context(), req.HostID)
	if err != nil {
		if errors.Is(err, host.ErrHostNotFound) {
			respondError(c, apierrors.ErrHostNotFoundError)
			return
		}
		respondStoreError(c, err)
		return
	}

	result := s.smsService.SendEvaluationRequests(c.Request.Context(), h, req.PhoneNumbers, nowUTC())

	for i := 0; i < result.Sent; i++ {
		monitoring.RecordSMSSent("sent")
	}
	for i := 0; i < result.Failed; i++ {
		monitoring.RecordSMSSent("failed")
	}

	respondOK(c, http.StatusOK, gin.H{
		"sent":   result.Sent,
		"failed": result.Failed,
		"errors": result.Errors,
	})
}

// handleStatsOverview returns the admin dashboard aggregates
func (s *APIServer) handleStatsOverview(c *gin.Context) {
	days, ok := s.windowDays(c)
	if !ok {
		return
	}
	now := nowUTC()

	community, err := s.hostService.Community(c.Request.Context(), days, now)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	monitoring.SetBadgesAwarded(community.ValuableHosts)

	respondOK(c, http.StatusOK, gin.H{
		"stats": gin.H{
			"total_hosts":       community.TotalHosts,
			"valuable_hosts":    community.ValuableHosts,
			"window_reviews":    community.TotalReviews,
			"window_avg_rating": community.AvgRating,
			"total_evaluations": community.TotalEvaluations,
		},
	})
}
