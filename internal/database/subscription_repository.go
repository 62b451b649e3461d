package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aitoolsdaily/collector/internal/models"
)

// SubscriptionRepository provides database operations for push subscriptions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert stores a subscription keyed by endpoint. Re-subscribing an endpoint
// refreshes its keys and reactivates it.
func (r *SubscriptionRepository) Upsert(ctx context.Context, endpoint, p256dh, auth string) (*models.Subscription, error) {
	now := time.Now()
	sub := &models.Subscription{
		ID:        uuid.New(),
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (endpoint) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			is_active = true,
			updated_at = EXCLUDED.updated_at
		RETURNING id, endpoint, p256dh, auth, is_active, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, sub.IsActive, sub.CreatedAt, sub.UpdatedAt,
	).StructScan(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return sub, nil
}

// ListActive returns all active subscriptions.
func (r *SubscriptionRepository) ListActive(ctx context.Context) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	query := `
		SELECT id, endpoint, p256dh, auth, is_active, created_at, updated_at
		FROM push_subscriptions
		WHERE is_active = true
	`

	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// Deactivate flags the given subscriptions inactive in one batched update.
// Rows are kept for history, never deleted.
func (r *SubscriptionRepository) Deactivate(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query := `
		UPDATE push_subscriptions
		SET is_active = false, updated_at = $2
		WHERE id = ANY($1::uuid[])
	`

	if _, err := r.db.ExecContext(ctx, query, pq.StringArray(strIDs), time.Now()); err != nil {
		return fmt.Errorf("failed to deactivate subscriptions: %w", err)
	}

	return nil
}
