package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valuablehost/hostpulse/internal/models"
	"github.com/valuablehost/hostpulse/internal/monitoring"
)

// Store errors
var (
	ErrInvalidRating    = errors.New("invalid rating: must be between 1 and 5")
	ErrInvalidWindow    = errors.New("invalid window: days must be positive")
	ErrHostNotFound     = errors.New("host not found")
	ErrDuplicate        = errors.New("duplicate evaluation within dedup window")
	ErrStoreUnavailable = errors.New("evaluation store unavailable")
)

const (
	// DedupWindow is the trailing period in which a second submission
	// with the same (phone, rating) is rejected as a duplicate.
	DedupWindow = time.Hour

	// MaxCommentLen bounds stored comment text.
	MaxCommentLen = 1000
)

// Store is the durable append-only record of rating events per host.
// A single Append is atomic: the unique index on
// (customer_phone, rating, hour bucket) makes concurrent duplicate
// submissions race-safe without a prior SELECT.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates an evaluation store over a connection pool
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Append records one evaluation for a host. The caller supplies now so
// window placement is deterministic and testable. Returns the new
// evaluation id, or ErrInvalidRating, ErrHostNotFound, ErrDuplicate,
// ErrStoreUnavailable.
func (s *Store) Append(ctx context.Context, hostID int64, rating int, comment *string, sourcePhone string, now time.Time) (int64, error) {
	if rating < 1 || rating > 5 {
		return 0, ErrInvalidRating
	}
	start := time.Now()
	defer func() { monitoring.RecordDBQuery("append_evaluation", time.Since(start)) }()
	if comment != nil {
		if runes := []rune(*comment); len(runes) > MaxCommentLen {
			capped := string(runes[:MaxCommentLen])
			comment = &capped
		}
	}

	// Advisory pre-check for the trailing window. The truncated-hour
	// unique index is the atomic backstop; this catches duplicates
	// that straddle an hour boundary.
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM evaluations
			WHERE customer_phone = $1 AND rating = $2 AND created_at > $3
		)
	`, sourcePhone, rating, now.Add(-DedupWindow)).Scan(&exists)
	if err != nil {
		return 0, classify(err, "check duplicate")
	}
	if exists {
		return 0, ErrDuplicate
	}

	var id int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO evaluations (host_id, rating, comment_text, customer_phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING evaluation_id
	`, hostID, rating, comment, sourcePhone, now).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation on the dedup index
				return 0, ErrDuplicate
			case "23503": // foreign_key_violation on host_id
				return 0, ErrHostNotFound
			}
		}
		return 0, classify(err, "append evaluation")
	}

	return id, nil
}

// QueryWindow returns a host's evaluations inside the trailing window,
// most recent first. Restartable: repeated calls see the same results
// barring new writes.
func (s *Store) QueryWindow(ctx context.Context, hostID int64, windowDays int, now time.Time) ([]models.Evaluation, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}

	rows, err := s.db.Query(ctx, `
		SELECT evaluation_id, host_id, rating, comment_text, customer_phone, created_at
		FROM evaluations
		WHERE host_id = $1 AND created_at > $2
		ORDER BY created_at DESC, evaluation_id DESC
	`, hostID, windowStart(now, windowDays))
	if err != nil {
		return nil, classify(err, "query window")
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// RecentComments returns the newest commented evaluations in the
// window, for the public "recent reviews" display.
func (s *Store) RecentComments(ctx context.Context, hostID int64, windowDays, limit int, now time.Time) ([]models.Evaluation, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	rows, err := s.db.Query(ctx, `
		SELECT evaluation_id, host_id, rating, comment_text, customer_phone, created_at
		FROM evaluations
		WHERE host_id = $1 AND created_at > $2 AND comment_text IS NOT NULL
		ORDER BY created_at DESC, evaluation_id DESC
		LIMIT $3
	`, hostID, windowStart(now, windowDays), limit)
	if err != nil {
		return nil, classify(err, "recent comments")
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// WindowStats returns the review count and exact rating sum for one
// host's trailing window. The sum stays an integer so the engine's
// threshold comparison is never subject to float aggregation.
func (s *Store) WindowStats(ctx context.Context, hostID int64, windowDays int, now time.Time) (count int, ratingSum int64, err error) {
	if windowDays <= 0 {
		return 0, 0, ErrInvalidWindow
	}
	start := time.Now()
	defer func() { monitoring.RecordDBQuery("window_stats", time.Since(start)) }()

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(rating), 0)
		FROM evaluations
		WHERE host_id = $1 AND created_at > $2
	`, hostID, windowStart(now, windowDays)).Scan(&count, &ratingSum)
	if err != nil {
		return 0, 0, classify(err, "window stats")
	}

	return count, ratingSum, nil
}

// OverallStats returns window-wide totals across all hosts, for the
// community statistics view.
type OverallStats struct {
	WindowCount      int   `json:"total_reviews"`
	WindowRatingSum  int64 `json:"-"`
	TotalEvaluations int64 `json:"total_evaluations"`
}

// Overall aggregates evaluations across all hosts for the window
func (s *Store) Overall(ctx context.Context, windowDays int, now time.Time) (*OverallStats, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}

	var stats OverallStats
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM evaluations WHERE created_at > $1),
			(SELECT COALESCE(SUM(rating), 0) FROM evaluations WHERE created_at > $1),
			(SELECT COUNT(*) FROM evaluations)
	`, windowStart(now, windowDays)).Scan(&stats.WindowCount, &stats.WindowRatingSum, &stats.TotalEvaluations)
	if err != nil {
		return nil, classify(err, "overall stats")
	}

	return &stats, nil
}

func windowStart(now time.Time, windowDays int) time.Time {
	return now.AddDate(0, 0, -windowDays)
}

func scanEvaluations(rows pgx.Rows) ([]models.Evaluation, error) {
	var evals []models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		if err := rows.Scan(&e.ID, &e.HostID, &e.Rating, &e.Comment, &e.CustomerPhone, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate evaluations")
	}
	return evals, nil
}

// classify maps infrastructure failures to ErrStoreUnavailable and
// wraps everything else with the failing operation.
func classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") { // connection exception class
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
