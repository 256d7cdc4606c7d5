package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/valuablehost/hostpulse/internal/errors"
	"github.com/valuablehost/hostpulse/internal/host"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/middleware"
)

// handleMyHost returns the authenticated host's own profile and badge
// status
func (s *APIServer) handleMyHost(c *gin.Context) {
	hostID, ok := middleware.GetHostIDFromContext(c)
	if !ok {
		respondError(c, apierrors.ErrForbiddenError)
		return
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	h, err := s.hostService.GetByID(c.Request.Context(), hostID)
	if err != nil {
		if errors.Is(err, host.ErrHostNotFound) {
			respondError(c, apierrors.ErrHostNotFoundError)
			return
		}
		respondStoreError(c, err)
		return
	}

	status, err := s.hostService.BadgeStatus(c.Request.Context(), hostID, days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"host": h, "status": status})
}

// handleMyEvaluations lists the authenticated host's evaluations in
// the trailing window, customer phones masked
func (s *APIServer) handleMyEvaluations(c *gin.Context) {
	hostID, ok := middleware.GetHostIDFromContext(c)
	if !ok {
		respondError(c, apierrors.ErrForbiddenError)
		return
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	evals, err := s.store.QueryWindow(c.Request.Context(), hostID, days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	out := make([]adminEvaluation, 0, len(evals))
	for _, e := range evals {
		out = append(out, adminEvaluation{
			ID:            e.ID,
			Rating:        e.Rating,
			Comment:       e.Comment,
			CustomerPhone: logging.MaskPhone(e.CustomerPhone),
			CreatedAt:     e.CreatedAt,
		})
	}

	respondOK(c, http.StatusOK, gin.H{"evaluations": out})
}
