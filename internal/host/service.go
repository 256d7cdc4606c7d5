package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/valuablehost/hostpulse/internal/badge"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/models"
)

// Service errors
var (
	ErrHostNotFound     = errors.New("host not found")
	ErrNoPendingRequest = errors.New("no pending evaluation request for phone")
)

// Service handles host queries, badge status reads and the admin
// badge override.
type Service struct {
	db     *pgxpool.Pool
	store  *evaluation.Store
	engine *badge.Engine
}

// NewService creates a host service
func NewService(db *pgxpool.Pool, store *evaluation.Store, engine *badge.Engine) *Service {
	return &Service{
		db:     db,
		store:  store,
		engine: engine,
	}
}

// GetByID retrieves one host
func (s *Service) GetByID(ctx context.Context, hostID int64) (*models.Host, error) {
	var h models.Host
	err := s.db.QueryRow(ctx, `
		SELECT host_id, host_name, email, phone, badge_override, created_at
		FROM hosts WHERE host_id = $1
	`, hostID).Scan(&h.ID, &h.Name, &h.Email, &h.Phone, &h.BadgeOverride, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHostNotFound
		}
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return &h, nil
}

// Create registers a new host at onboarding
func (s *Service) Create(ctx context.Context, name string, email, phone *string) (*models.Host, error) {
	var h models.Host
	err := s.db.QueryRow(ctx, `
		INSERT INTO hosts (host_name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING host_id, host_name, email, phone, badge_override, created_at
	`, name, email, phone).Scan(&h.ID, &h.Name, &h.Email, &h.Phone, &h.BadgeOverride, &h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}
	return &h, nil
}

// SetOverride forces the badge state for a host. The effect is
// immediate: the next badge status read sees the new value.
func (s *Service) SetOverride(ctx context.Context, hostID int64, value string) (models.BadgeOverride, error) {
	override, err := badge.ParseOverride(value)
	if err != nil {
		return "", err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE hosts SET badge_override = $1 WHERE host_id = $2
	`, override, hostID)
	if err != nil {
		return "", fmt.Errorf("failed to set badge override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrHostNotFound
	}

	return override, nil
}

// BadgeStatus computes the current derived badge state for a host.
// Never cached: each call re-reads the window so the status cannot go
// stale beyond the staleness of the underlying read.
func (s *Service) BadgeStatus(ctx context.Context, hostID int64, windowDays int, now time.Time) (*badge.Status, error) {
	h, err := s.GetByID(ctx, hostID)
	if err != nil {
		return nil, err
	}

	count, sum, err := s.store.WindowStats(ctx, hostID, windowDays, now)
	if err != nil {
		return nil, err
	}

	status := s.engine.Compute(count, sum, h.BadgeOverride)
	return &status, nil
}

// Performance is one host's row in the admin performance listing
type Performance struct {
	Host   models.Host  `json:"host"`
	Status badge.Status `json:"status"`
}

// ListPerformance returns every host with its windowed badge status,
// best average first. Hosts without reviews appear at the end.
func (s *Service) ListPerformance(ctx context.Context, windowDays int, now time.Time) ([]Performance, error) {
	if windowDays <= 0 {
		return nil, evaluation.ErrInvalidWindow
	}

	rows, err := s.db.Query(ctx, `
		SELECT h.host_id, h.host_name, h.email, h.phone, h.badge_override, h.created_at,
			COUNT(e.evaluation_id), COALESCE(SUM(e.rating), 0)
		FROM hosts h
		LEFT JOIN evaluations e
			ON e.host_id = h.host_id AND e.created_at > $1
		GROUP BY h.host_id
		ORDER BY COALESCE(SUM(e.rating)::numeric / NULLIF(COUNT(e.evaluation_id), 0), -1) DESC,
			COUNT(e.evaluation_id) DESC, h.host_id ASC
	`, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to list host performance: %w", err)
	}
	defer rows.Close()

	var result []Performance
	for rows.Next() {
		var p Performance
		var count int
		var sum int64
		if err := rows.Scan(&p.Host.ID, &p.Host.Name, &p.Host.Email, &p.Host.Phone,
			&p.Host.BadgeOverride, &p.Host.CreatedAt, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan host performance: %w", err)
		}
		p.Status = s.engine.Compute(count, sum, p.Host.BadgeOverride)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate host performance: %w", err)
	}

	return result, nil
}

// CommunityStats is the public overview of the whole marketplace
type CommunityStats struct {
	TotalHosts       int64           `json:"total_hosts"`
	ValuableHosts    int             `json:"valuable_hosts"`
	TotalReviews     int             `json:"total_reviews"`
	AvgRating        decimal.Decimal `json:"avg_rating"`
	TotalEvaluations int64           `json:"total_evaluations"`
}

// Community aggregates marketplace-wide statistics for the window
func (s *Service) Community(ctx context.Context, windowDays int, now time.Time) (*CommunityStats, error) {
	overall, err := s.store.Overall(ctx, windowDays, now)
	if err != nil {
		return nil, err
	}

	var totalHosts int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM hosts`).Scan(&totalHosts); err != nil {
		return nil, fmt.Errorf("failed to count hosts: %w", err)
	}

	performances, err := s.ListPerformance(ctx, windowDays, now)
	if err != nil {
		return nil, err
	}
	valuable := 0
	for _, p := range performances {
		if p.Status.HasBadge {
			valuable++
		}
	}

	avg := decimal.Zero
	if overall.WindowCount > 0 {
		avg = decimal.NewFromInt(overall.WindowRatingSum).
			DivRound(decimal.NewFromInt(int64(overall.WindowCount)), 2)
	}

	return &CommunityStats{
		TotalHosts:       totalHosts,
		ValuableHosts:    valuable,
		TotalReviews:     overall.WindowCount,
		AvgRating:        avg,
		TotalEvaluations: overall.TotalEvaluations,
	}, nil
}
