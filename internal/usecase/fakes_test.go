package usecase

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kaibiganhq/kaibigan-api/internal/llm"
	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/repository"
)

// In-memory fakes satisfying the repository interfaces. They mirror the
// Mongo repositories' observable behavior, including ErrNoDocuments on
// missing records.

func upsertUserParams(username, passwordHash string) repository.UpsertUserParams {
	return repository.UpsertUserParams{Username: &username, PasswordHash: &passwordHash}
}

type fakeUserRepo struct {
	users map[string]*model.User // keyed by email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) UpsertByEmail(
	_ context.Context,
	email string,
	params repository.UpsertUserParams,
) (*model.User, error) {
	user, ok := r.users[email]
	if !ok {
		user = &model.User{Email: email, CreatedAt: time.Now()}
		r.users[email] = user
	}
	if params.Username != nil {
		user.Username = *params.Username
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	if params.ProfileImage != nil {
		user.ProfileImage = *params.ProfileImage
	}
	user.UpdatedAt = time.Now()
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) SetProfileImage(_ context.Context, email, profileImage string) error {
	if user, ok := r.users[email]; ok {
		user.ProfileImage = profileImage
	}
	return nil
}

type fakeOtpRepo struct {
	challenges []*model.OtpChallenge
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{}
}

func (r *fakeOtpRepo) CreateChallenge(
	_ context.Context,
	challenge *model.OtpChallenge,
) (*model.OtpChallenge, error) {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	r.challenges = append(r.challenges, challenge)
	return challenge, nil
}

func (r *fakeOtpRepo) GetLatestByEmail(_ context.Context, email string) (*model.OtpChallenge, error) {
	var latest *model.OtpChallenge
	for _, challenge := range r.challenges {
		if challenge.Email != email {
			continue
		}
		if latest == nil || challenge.CreatedAt.After(latest.CreatedAt) {
			latest = challenge
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeOtpRepo) DeleteByEmail(_ context.Context, email string) (int64, error) {
	var kept []*model.OtpChallenge
	var deleted int64
	for _, challenge := range r.challenges {
		if challenge.Email == email {
			deleted++
			continue
		}
		kept = append(kept, challenge)
	}
	r.challenges = kept
	return deleted, nil
}

type fakeTurnRepo struct {
	turns []*model.ChatTurn
}

func newFakeTurnRepo() *fakeTurnRepo {
	return &fakeTurnRepo{}
}

func (r *fakeTurnRepo) AppendTurn(_ context.Context, turn *model.ChatTurn) (*model.ChatTurn, error) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	r.turns = append(r.turns, turn)
	return turn, nil
}

func (r *fakeTurnRepo) ListByEmail(_ context.Context, email string) ([]*model.ChatTurn, error) {
	return r.list(func(t *model.ChatTurn) bool { return t.Email == email }), nil
}

func (r *fakeTurnRepo) ListByEmailAndSession(
	_ context.Context,
	email, sessionID string,
) ([]*model.ChatTurn, error) {
	return r.list(func(t *model.ChatTurn) bool {
		return t.Email == email && t.SessionID == sessionID
	}), nil
}

func (r *fakeTurnRepo) list(match func(*model.ChatTurn) bool) []*model.ChatTurn {
	var out []*model.ChatTurn
	for _, turn := range r.turns {
		if match(turn) {
			out = append(out, turn)
		}
	}
	// Chronological, insertion order breaking ties, like the Mongo sort.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

type fakeMailer struct {
	sent []fakeMail
	err  error
}

type fakeMail struct {
	to      []string
	subject string
	body    string
}

func (m *fakeMailer) SendSimple(to []string, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, fakeMail{to: to, subject: subject, body: body})
	return nil
}

type fakeCompleter struct {
	reply    string
	err      error
	received [][]llm.Message
}

func (c *fakeCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.received = append(c.received, messages)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}
