package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a push subscription row. Subscriptions whose endpoints are
// gone (404/410 on delivery) are deactivated, never deleted.
type Subscription struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Endpoint  string    `db:"endpoint"   json:"endpoint"`
	P256dh    string    `db:"p256dh"     json:"p256dh"`
	Auth      string    `db:"auth"       json:"auth"`
	IsActive  bool      `db:"is_active"  json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubscribeRequest is the payload for POST /api/v1/subscriptions. The shape
// mirrors the browser PushSubscription JSON.
type SubscribeRequest struct {
	Endpoint string `binding:"required,url" json:"endpoint"`
	Keys     struct {
		P256dh string `binding:"required" json:"p256dh"`
		Auth   string `binding:"required" json:"auth"`
	} `binding:"required" json:"keys"`
}
