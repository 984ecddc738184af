package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents an account in the chat application. Email is the canonical
// identity across all subsystems; Username and PasswordHash are only set for
// accounts that completed a local signup, and ProfileImage is only set for
// accounts that logged in through Google at least once.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	Username     string        `bson:"username,omitempty"`
	PasswordHash string        `bson:"password_hash,omitempty"`
	ProfileImage string        `bson:"profile_image,omitempty"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}
