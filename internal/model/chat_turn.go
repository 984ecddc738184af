package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChatTurn represents one exchange between a user and the assistant. Turns are
// append-only and immutable once written; SessionID groups the turns of one
// conversation, bounded by login-to-logout or an explicit session reset.
type ChatTurn struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Email       string        `bson:"email"`
	SessionID   string        `bson:"session_id"`
	UserMessage string        `bson:"user_message"`
	BotReply    string        `bson:"bot_reply"`
	Timestamp   time.Time     `bson:"timestamp"`
}
