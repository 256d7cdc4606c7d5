package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/valuablehost/hostpulse/internal/models"
)

// CreatePendingRequest records that an evaluation was requested from a
// phone number for a host. The inbound webhook resolves this mapping
// to attribute the reply, since SMS replies carry no host identity.
func (s *Service) CreatePendingRequest(ctx context.Context, phone string, hostID int64, expiresAt time.Time) (*models.PendingRequest, error) {
	var p models.PendingRequest
	err := s.db.QueryRow(ctx, `
		INSERT INTO pending_requests (customer_phone, host_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING request_id, customer_phone, host_id, expires_at, consumed_at, created_at
	`, phone, hostID, expiresAt).Scan(
		&p.ID, &p.CustomerPhone, &p.HostID, &p.ExpiresAt, &p.ConsumedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending request: %w", err)
	}
	return &p, nil
}

// ResolvePending finds the newest unexpired pending request for a
// phone number. Returns ErrNoPendingRequest when the sender cannot be
// matched to a host. Consumed requests still resolve until they
// expire: retried webhook deliveries must reach the store's dedup
// check, not fail attribution here.
func (s *Service) ResolvePending(ctx context.Context, phone string, now time.Time) (*models.PendingRequest, error) {
	var p models.PendingRequest
	err := s.db.QueryRow(ctx, `
		SELECT request_id, customer_phone, host_id, expires_at, consumed_at, created_at
		FROM pending_requests
		WHERE customer_phone = $1 AND expires_at > $2
		ORDER BY created_at DESC, request_id DESC
		LIMIT 1
	`, phone, now).Scan(
		&p.ID, &p.CustomerPhone, &p.HostID, &p.ExpiresAt, &p.ConsumedAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingRequest
		}
		return nil, fmt.Errorf("failed to resolve pending request: %w", err)
	}
	return &p, nil
}

// ConsumePending marks the first time a pending request produced a
// stored evaluation. Audit marker only: the evaluation store's dedup
// is what prevents double-stores.
func (s *Service) ConsumePending(ctx context.Context, requestID int64, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE pending_requests SET consumed_at = $1
		WHERE request_id = $2 AND consumed_at IS NULL
	`, now, requestID)
	if err != nil {
		return fmt.Errorf("failed to consume pending request: %w", err)
	}
	return nil
}
