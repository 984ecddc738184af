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

// UserRepository defines the interface for user-related database operations.
// Records are keyed by email; creation happens through UpsertByEmail so both
// the OTP finalize and the OAuth first-login stay idempotent.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpsertByEmail(ctx context.Context, email string, params UpsertUserParams) (*model.User, error)
	SetProfileImage(ctx context.Context, email, profileImage string) error
}

// UpsertUserParams defines the optional fields applied when finalizing or
// refreshing a user keyed by email. Only fields that are not nil are set.
type UpsertUserParams struct {
	Username     *string
	PasswordHash *string
	ProfileImage *string
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"email": email})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, bson.M{"username": username})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) UpsertByEmail(
	ctx context.Context,
	email string,
	params UpsertUserParams,
) (*model.User, error) {
	now := time.Now()

	// Build update query
	setMap := bson.M{"email": email, "updated_at": now}
	if params.Username != nil {
		setMap["username"] = *params.Username
	}
	if params.PasswordHash != nil {
		setMap["password_hash"] = *params.PasswordHash
	}
	if params.ProfileImage != nil {
		setMap["profile_image"] = *params.ProfileImage
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$set":         setMap,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) SetProfileImage(ctx context.Context, email, profileImage string) error {
	_, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"profile_image": profileImage, "updated_at": time.Now()}},
	)
	return err
}
