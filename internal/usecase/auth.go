package usecase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/repository"
	"github.com/kaibiganhq/kaibigan-api/internal/security"
)

// AuthUsecase defines the authentication-related use cases that do not go
// through the OTP flow: local credential checks and external identity
// resolution. All three login paths end in the same session state.
type AuthUsecase interface {
	// Signup stages a local account behind OTP verification; no User record
	// is written until the code is verified.
	Signup(ctx context.Context, params SignupParams) error

	// Signin checks local credentials.
	Signin(ctx context.Context, username, password string) (*model.User, error)

	// ResolveExternalIdentity reconciles an OAuth assertion into a User,
	// creating the record for a previously-unseen email.
	ResolveExternalIdentity(ctx context.Context, claims ExternalClaims) (*model.User, error)
}

// SignupParams defines the parameters for a local signup.
type SignupParams struct {
	Email    string
	Username string
	Password string
}

// ExternalClaims is the subset of an OAuth identity assertion this
// application consumes.
type ExternalClaims struct {
	Email   string
	Name    string
	Picture string
}

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoEmailClaim       = errors.New("external identity has no email claim")
)

type authUsecase struct {
	userRepo repository.UserRepository
	otp      OTPUsecase
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(userRepo repository.UserRepository, otp OTPUsecase) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		otp:      otp,
	}
}

func (u *authUsecase) Signup(ctx context.Context, params SignupParams) error {
	existing, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	// An account that already holds credentials cannot be signed up again.
	// An email known only from a Google login may still claim a username and
	// password; verification upserts onto the same record.
	if existing != nil && existing.PasswordHash != "" {
		return ErrUserAlreadyExists
	}

	return u.otp.Issue(ctx, IssueOTPParams{
		Email:    params.Email,
		Username: params.Username,
		Password: params.Password,
	})
}

func (u *authUsecase) Signin(ctx context.Context, username, password string) (*model.User, error) {
	user, err := u.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if ok, err := security.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (u *authUsecase) ResolveExternalIdentity(ctx context.Context, claims ExternalClaims) (*model.User, error) {
	if claims.Email == "" {
		return nil, ErrNoEmailClaim
	}

	existing, err := u.userRepo.GetUserByEmail(ctx, claims.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// A previously-unseen email gets a record with all supplied claim
	// fields. The upsert keeps concurrent first logins idempotent.
	if existing == nil {
		params := repository.UpsertUserParams{}
		if claims.Name != "" {
			params.Username = &claims.Name
		}
		if claims.Picture != "" {
			params.ProfileImage = &claims.Picture
		}

		return u.userRepo.UpsertByEmail(ctx, claims.Email, params)
	}

	// A repeat login only refreshes the cached profile image; locally chosen
	// usernames and credentials are left alone.
	if claims.Picture != "" && claims.Picture != existing.ProfileImage {
		if err := u.userRepo.SetProfileImage(ctx, claims.Email, claims.Picture); err != nil {
			return nil, err
		}
		existing.ProfileImage = claims.Picture
	}

	return existing, nil
}
