package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kaibiganhq/kaibigan-api/internal/model"
)

// ChatTurnRepository defines the interface for chat history operations.
// Turns are append-only; there are no update or delete operations.
type ChatTurnRepository interface {
	AppendTurn(ctx context.Context, turn *model.ChatTurn) (*model.ChatTurn, error)

	// ListByEmail returns every turn for an identity in chronological order,
	// insertion order breaking timestamp ties.
	ListByEmail(ctx context.Context, email string) ([]*model.ChatTurn, error)

	// ListByEmailAndSession returns the turns of one conversation session in
	// chronological order.
	ListByEmailAndSession(ctx context.Context, email, sessionID string) ([]*model.ChatTurn, error)
}

const historyCollection = "history"

type chatTurnMongoRepository struct {
	db *mongo.Database
}

func NewChatTurnMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) ChatTurnRepository {
	collection := db.Collection(historyCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "session_id", Value: 1},
				{Key: "timestamp", Value: 1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create history indexes")
	}

	return &chatTurnMongoRepository{db: db}
}

func (r *chatTurnMongoRepository) AppendTurn(ctx context.Context, turn *model.ChatTurn) (*model.ChatTurn, error) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	result, err := r.db.Collection(historyCollection).InsertOne(ctx, turn)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		turn.ID = objectID
	}

	return turn, nil
}

func (r *chatTurnMongoRepository) ListByEmail(ctx context.Context, email string) ([]*model.ChatTurn, error) {
	return r.list(ctx, bson.M{"email": email})
}

func (r *chatTurnMongoRepository) ListByEmailAndSession(
	ctx context.Context,
	email, sessionID string,
) ([]*model.ChatTurn, error) {
	return r.list(ctx, bson.M{"email": email, "session_id": sessionID})
}

func (r *chatTurnMongoRepository) list(ctx context.Context, filter bson.M) ([]*model.ChatTurn, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.db.Collection(historyCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var turns []*model.ChatTurn
	for cursor.Next(ctx) {
		var turn model.ChatTurn
		if err := cursor.Decode(&turn); err != nil {
			return nil, err
		}
		turns = append(turns, &turn)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return turns, nil
}
