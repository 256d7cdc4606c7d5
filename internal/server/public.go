package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/valuablehost/hostpulse/internal/errors"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/host"
)

// publicReview is one commented review as exposed publicly. The
// customer phone never leaves the system.
type publicReview struct {
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// handleLeaderboard returns the top-N hosts ordered by windowed
// average, then review count, then host id
func (s *APIServer) handleLeaderboard(c *gin.Context) {
	limit := s.config.Badge.LeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw, 100)
		if err != nil {
			respondError(c, apierrors.NewInvalidRequestError("limit must be a positive integer up to 100"))
			return
		}
		limit = parsed
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	entries, err := s.ranker.Top(c.Request.Context(), days, limit, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// handleGetHost returns one host's public profile with badge status
func (s *APIServer) handleGetHost(c *gin.Context) {
	hostID, err := parseHostID(c)
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("invalid host id"))
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

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	status, err := s.hostService.BadgeStatus(c.Request.Context(), hostID, days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"host": gin.H{
			"host_id":   h.ID,
			"host_name": h.Name,
		},
		"status": status,
	})
}

// handleHostReviews returns a host's recent commented reviews
func (s *APIServer) handleHostReviews(c *gin.Context) {
	hostID, err := parseHostID(c)
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("invalid host id"))
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw, 50)
		if err != nil {
			respondError(c, apierrors.NewInvalidRequestError("limit must be a positive integer up to 50"))
			return
		}
		limit = parsed
	}

	if _, err := s.hostService.GetByID(c.Request.Context(), hostID); err != nil {
		if errors.Is(err, host.ErrHostNotFound) {
			respondError(c, apierrors.ErrHostNotFoundError)
			return
		}
		respondStoreError(c, err)
		return
	}

	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	evals, err := s.store.RecentComments(c.Request.Context(), hostID, days, limit, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	reviews := make([]publicReview, 0, len(evals))
	for _, e := range evals {
		reviews = append(reviews, publicReview{
			Rating:    e.Rating,
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
		})
	}

	respondOK(c, http.StatusOK, gin.H{"reviews": reviews})
}

// handleBadgeCriteria publishes the automatic eligibility thresholds
func (s *APIServer) handleBadgeCriteria(c *gin.Context) {
	criteria := s.engine.Criteria()
	respondOK(c, http.StatusOK, gin.H{
		"criteria": gin.H{
			"min_reviews": criteria.MinReviews,
			"min_rating":  criteria.MinRating,
			"window_days": criteria.WindowDays,
		},
	})
}

// handleCommunityStats returns aggregate stats across all hosts
func (s *APIServer) handleCommunityStats(c *gin.Context) {
	days, ok := s.windowDays(c)
	if !ok {
		return
	}

	stats, err := s.hostService.Community(c.Request.Context(), days, nowUTC())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"stats": stats})
}

// respondStoreError maps storage failures to the 503 taxonomy and
// everything else to a 500
func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, evaluation.ErrStoreUnavailable) {
		respondError(c, apierrors.ErrStoreUnavailableError)
		return
	}
	respondError(c, apierrors.ErrInternalServerError)
}

func parseHostID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parsePositiveInt(raw string, max int) (int, error) {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if parsed < 1 || parsed > max {
		return 0, fmt.Errorf("value %d out of range 1..%d", parsed, max)
	}
	return parsed, nil
}
