package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/repository"
	"github.com/kaibiganhq/kaibigan-api/internal/security"
)

// OTPUsecase defines the business logic for issuing and verifying one-time
// codes. Verification is the single gate that finalizes a pending signup into
// an active User record.
type OTPUsecase interface {
	// Issue generates a code, stores the challenge and emails the code. Any
	// pending signup data rides on the challenge until verification.
	Issue(ctx context.Context, params IssueOTPParams) error

	// Verify consumes the latest challenge for the email and finalizes the
	// User record, creating it if absent.
	Verify(ctx context.Context, email, code string) (*model.User, error)
}

// IssueOTPParams defines the parameters for issuing an OTP. Username and
// Password are optional; when present they are staged on the challenge and
// applied to the User record on verification.
type IssueOTPParams struct {
	Email    string
	Username string
	Password string
}

// OTPMailer is the outbound mail dependency of the OTP flow.
type OTPMailer interface {
	SendSimple(to []string, subject, body string) error
}

var (
	ErrOTPInvalid   = errors.New("invalid verification code")
	ErrOTPExpired   = errors.New("verification code has expired")
	ErrOTPThrottled = errors.New("verification code was requested too recently")
	ErrMailDelivery = errors.New("failed to deliver verification email")
)

const (
	otpValidity    = 10 * time.Minute
	otpIssueWindow = time.Minute

	otpMailSubject = "Your Kaibigan verification code"
)

type otpUsecase struct {
	otpRepo  repository.OtpRepository
	userRepo repository.UserRepository
	mailer   OTPMailer
}

// NewOTPUsecase creates a new instance of OTPUsecase.
func NewOTPUsecase(
	otpRepo repository.OtpRepository,
	userRepo repository.UserRepository,
	mailer OTPMailer,
) OTPUsecase {
	return &otpUsecase{
		otpRepo:  otpRepo,
		userRepo: userRepo,
		mailer:   mailer,
	}
}

func (u *otpUsecase) Issue(ctx context.Context, params IssueOTPParams) error {
	// Throttle per email before anything is stored.
	latest, err := u.otpRepo.GetLatestByEmail(ctx, params.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	if latest != nil && time.Since(latest.CreatedAt) < otpIssueWindow {
		return ErrOTPThrottled
	}

	var passwordHash string
	if params.Password != "" {
		passwordHash, err = security.HashPassword(params.Password)
		if err != nil {
			return err
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	// A fresh issue supersedes any earlier challenge for the email, so only
	// the last emailed code can ever verify.
	if _, err := u.otpRepo.DeleteByEmail(ctx, params.Email); err != nil {
		return err
	}

	challenge := &model.OtpChallenge{
		Email:               params.Email,
		Code:                code,
		ExpiresAt:           time.Now().Add(otpValidity),
		PendingUsername:     params.Username,
		PendingPasswordHash: passwordHash,
	}

	if _, err := u.otpRepo.CreateChallenge(ctx, challenge); err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(otpValidity.Minutes()))

	if err := u.mailer.SendSimple([]string{params.Email}, otpMailSubject, body); err != nil {
		// Never claim the email was sent. Remove the challenge so a code the
		// user never received cannot linger.
		_, _ = u.otpRepo.DeleteByEmail(ctx, params.Email)
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	return nil
}

func (u *otpUsecase) Verify(ctx context.Context, email, code string) (*model.User, error) {
	challenge, err := u.otpRepo.GetLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOTPInvalid
		}
		return nil, err
	}

	if challenge.Code != code {
		return nil, ErrOTPInvalid
	}

	// Reject expired challenges even when the code matches.
	if time.Now().After(challenge.ExpiresAt) {
		return nil, ErrOTPExpired
	}

	// Finalize the pending signup. The upsert is keyed by email so repeated
	// verifications never duplicate the account.
	params := repository.UpsertUserParams{}
	if challenge.PendingUsername != "" {
		params.Username = &challenge.PendingUsername
	}
	if challenge.PendingPasswordHash != "" {
		params.PasswordHash = &challenge.PendingPasswordHash
	}

	user, err := u.userRepo.UpsertByEmail(ctx, email, params)
	if err != nil {
		return nil, err
	}

	if _, err := u.otpRepo.DeleteByEmail(ctx, email); err != nil {
		return nil, err
	}

	return user, nil
}

// generateCode returns a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
