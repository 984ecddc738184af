package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaibiganhq/kaibigan-api/internal/llm"
	"github.com/kaibiganhq/kaibigan-api/internal/model"
	"github.com/kaibiganhq/kaibigan-api/internal/repository"
)

// ChatUsecase defines the business logic for recording chat turns and reading
// them back grouped by conversation session.
type ChatUsecase interface {
	// RecordTurn obtains a reply for the message and persists the exchange.
	// An upstream completion failure is absorbed: the turn is written with a
	// fallback reply and no error reaches the caller.
	RecordTurn(ctx context.Context, params RecordTurnParams) (*model.ChatTurn, error)

	// ListSessionSummaries returns one summary per conversation session the
	// identity has ever used, most recent session first.
	ListSessionSummaries(ctx context.Context, email string) ([]SessionSummary, error)

	// GetSessionTranscript returns the turns of one session in chronological
	// order.
	GetSessionTranscript(ctx context.Context, email, sessionID string) ([]*model.ChatTurn, error)
}

// RecordTurnParams defines the parameters for one chat exchange. Topics is an
// optional caller-supplied list of prior conversation topics used as context
// for the completion call; it is truncated to the most recent maxTopics
// entries to keep the prompt bounded.
type RecordTurnParams struct {
	Email       string
	SessionID   string
	UserMessage string
	Topics      []string
}

// SessionSummary is the latest exchange of one conversation session.
type SessionSummary struct {
	SessionID       string    `json:"session_id"`
	LastUserMessage string    `json:"last_user_message"`
	LastBotReply    string    `json:"last_bot_reply"`
	Timestamp       time.Time `json:"timestamp"`
}

// Completer is the outbound completion dependency of the chat flow.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

const maxTopics = 10

// personaMessage is the fixed system instruction: a supportive Tagalog-only
// companion that stays on mental health.
const personaMessage = "Ikaw ay isang kaibigan na handang makinig at magbigay ng suporta. " +
	"Huwag magbigay ng inpormasyon na hindi kaugnay sa mental health. " +
	"Maging magiliw at sumagot lamang sa Tagalog. " +
	"Magbigay ng payo kung nararamdaman mong kailangan ko ito bilang kausap."

const (
	// fallbackReply is returned when the completion call fails outright.
	fallbackReply = "Pasensya na, hindi kita naintindihan. Pwede mo bang ulitin?"

	// listeningReply is returned when the upstream answers with empty content.
	listeningReply = "Nandito ako para makinig. Ano ang nasa isip mo ngayon?"
)

type chatUsecase struct {
	turnRepo  repository.ChatTurnRepository
	completer Completer
	logger    *zerolog.Logger
}

// NewChatUsecase creates a new instance of ChatUsecase.
func NewChatUsecase(
	turnRepo repository.ChatTurnRepository,
	completer Completer,
	logger *zerolog.Logger,
) ChatUsecase {
	return &chatUsecase{
		turnRepo:  turnRepo,
		completer: completer,
		logger:    logger,
	}
}

func (u *chatUsecase) RecordTurn(ctx context.Context, params RecordTurnParams) (*model.ChatTurn, error) {
	messages := make([]llm.Message, 0, maxTopics+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: personaMessage})

	topics := params.Topics
	if len(topics) > maxTopics {
		topics = topics[len(topics)-maxTopics:]
	}
	for _, topic := range topics {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: topic})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: params.UserMessage})

	reply, err := u.completer.Complete(ctx, messages)
	if err != nil {
		// The chat never fails visibly on an upstream error; the user gets
		// the canned apology and the turn is still recorded.
		u.logger.Error().Err(err).Str("email", params.Email).Msg("completion call failed")
		reply = fallbackReply
	} else if reply == "" {
		reply = listeningReply
	}

	turn := &model.ChatTurn{
		Email:       params.Email,
		SessionID:   params.SessionID,
		UserMessage: params.UserMessage,
		BotReply:    reply,
		Timestamp:   time.Now(),
	}

	return u.turnRepo.AppendTurn(ctx, turn)
}

func (u *chatUsecase) ListSessionSummaries(ctx context.Context, email string) ([]SessionSummary, error) {
	turns, err := u.turnRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// Turns arrive in chronological order, so the last turn seen per session
	// is the one with the greatest timestamp.
	latest := make(map[string]*model.ChatTurn)
	for _, turn := range turns {
		latest[turn.SessionID] = turn
	}

	summaries := make([]SessionSummary, 0, len(latest))
	for sessionID, turn := range latest {
		summaries = append(summaries, SessionSummary{
			SessionID:       sessionID,
			LastUserMessage: turn.UserMessage,
			LastBotReply:    turn.BotReply,
			Timestamp:       turn.Timestamp,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	return summaries, nil
}

func (u *chatUsecase) GetSessionTranscript(
	ctx context.Context,
	email, sessionID string,
) ([]*model.ChatTurn, error) {
	return u.turnRepo.ListByEmailAndSession(ctx, email, sessionID)
}
