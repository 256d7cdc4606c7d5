package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valuablehost/hostpulse/internal/badge"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/models"
)

// Entry is one ranked host with its derived badge status
type Entry struct {
	HostID int64        `json:"host_id"`
	Name   string       `json:"name"`
	Status badge.Status `json:"status"`
}

// HostStats is the raw windowed input for ranking one host
type HostStats struct {
	HostID    int64
	Name      string
	Count     int
	RatingSum int64
	Override  models.BadgeOverride
}

// Ranker builds the bounded top-N leaderboard. Reads are
// read-committed and lock-free: results stale by milliseconds are
// acceptable.
type Ranker struct {
	db     *pgxpool.Pool
	engine *badge.Engine
}

// NewRanker creates a leaderboard ranker
func NewRanker(db *pgxpool.Pool, engine *badge.Engine) *Ranker {
	return &Ranker{db: db, engine: engine}
}

// Top returns at most limit hosts with at least one review in the
// window, ordered by average rating, then review count, then host id
// ascending so the order is a deterministic total order.
func (r *Ranker) Top(ctx context.Context, windowDays, limit int, now time.Time) ([]Entry, error) {
	if windowDays <= 0 {
		return nil, evaluation.ErrInvalidWindow
	}
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT h.host_id, h.host_name, h.badge_override,
			COUNT(e.evaluation_id), COALESCE(SUM(e.rating), 0)
		FROM hosts h
		JOIN evaluations e ON e.host_id = h.host_id AND e.created_at > $1
		GROUP BY h.host_id
		ORDER BY SUM(e.rating)::numeric / COUNT(e.evaluation_id) DESC,
			COUNT(e.evaluation_id) DESC, h.host_id ASC
		LIMIT $2
	`, now.AddDate(0, 0, -windowDays), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var stats HostStats
		if err := rows.Scan(&stats.HostID, &stats.Name, &stats.Override, &stats.Count, &stats.RatingSum); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, Entry{
			HostID: stats.HostID,
			Name:   stats.Name,
			Status: r.engine.Compute(stats.Count, stats.RatingSum, stats.Override),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}

// Rank orders host stats in process with the same total order the SQL
// uses. Hosts without reviews in the window are excluded. Averages are
// compared exactly by cross-multiplication, so no float rounding can
// reorder hosts at a boundary.
func Rank(engine *badge.Engine, stats []HostStats, limit int) []Entry {
	if limit <= 0 {
		return []Entry{}
	}

	ranked := make([]HostStats, 0, len(stats))
	for _, s := range stats {
		if s.Count > 0 {
			ranked = append(ranked, s)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]Entry, 0, len(ranked))
	for _, s := range ranked {
		entries = append(entries, Entry{
			HostID: s.HostID,
			Name:   s.Name,
			Status: engine.Compute(s.Count, s.RatingSum, s.Override),
		})
	}
	return entries
}

// Less reports whether a ranks strictly before b: higher average
// first, then higher count, then lower host id. avgA > avgB is
// compared as sumA*countB > sumB*countA to stay exact.
func Less(a, b HostStats) bool {
	left := a.RatingSum * int64(b.Count)
	right := b.RatingSum * int64(a.Count)
	if left != right {
		return left > right
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.HostID < b.HostID
}
