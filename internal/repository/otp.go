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

// OtpRepository defines the interface for OTP challenge operations.
type OtpRepository interface {
	// CreateChallenge stores a freshly issued challenge.
	CreateChallenge(ctx context.Context, challenge *model.OtpChallenge) (*model.OtpChallenge, error)

	// GetLatestByEmail retrieves the most recently issued challenge for an email.
	GetLatestByEmail(ctx context.Context, email string) (*model.OtpChallenge, error)

	// DeleteByEmail removes all challenges for an email.
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

const otpCollection = "otp_verification"

type otpMongoRepository struct {
	db *mongo.Database
}

// NewOtpMongoRepository creates a new MongoDB repository for OTP challenges.
func NewOtpMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) OtpRepository {
	collection := db.Collection(otpCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create otp indexes")
	}

	return &otpMongoRepository{db: db}
}

func (r *otpMongoRepository) CreateChallenge(
	ctx context.Context,
	challenge *model.OtpChallenge,
) (*model.OtpChallenge, error) {
	challenge.CreatedAt = time.Now()

	result, err := r.db.Collection(otpCollection).InsertOne(ctx, challenge)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		challenge.ID = objectID
	}

	return challenge, nil
}

func (r *otpMongoRepository) GetLatestByEmail(ctx context.Context, email string) (*model.OtpChallenge, error) {
	result := r.db.Collection(otpCollection).FindOne(
		ctx,
		bson.M{"email": email},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var challenge model.OtpChallenge
	if err := result.Decode(&challenge); err != nil {
		return nil, err
	}

	return &challenge, nil
}

func (r *otpMongoRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result, err := r.db.Collection(otpCollection).DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
