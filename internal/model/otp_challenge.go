package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OtpChallenge represents a pending email verification. The pending fields
// carry signup data staged at issue time; they are folded into the User record
// only after the code is verified. Expired challenges are reaped by a TTL
// index on expires_at.
type OtpChallenge struct {
	ID                  bson.ObjectID `bson:"_id,omitempty"`
	Email               string        `bson:"email"`
	Code                string        `bson:"otp"`
	ExpiresAt           time.Time     `bson:"expires_at"`
	PendingUsername     string        `bson:"pending_username,omitempty"`
	PendingPasswordHash string        `bson:"pending_password_hash,omitempty"`
	CreatedAt           time.Time     `bson:"created_at"`
}
