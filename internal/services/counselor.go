package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/clients/openai"
	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// counselorPersona is the system prompt for the built-in listener. Kept
// deliberately short: the model should reflect, not lecture.
const counselorPersona = "あなたは「のぞみ」という名前の優しいカウンセラーです。" +
	"ユーザーの価値観や悩みに寄り添い、共感しながら短く温かい言葉で返答してください。" +
	"説教や長い一般論は避け、相手自身の言葉を引き出す問いかけを心がけてください。"

// historyTurnLimit bounds how much prior conversation is replayed into the
// completion request.
const historyTurnLimit = 30

// CounselorService runs the built-in counselor persona: each user has one
// room with the counselor identity, and every user turn is answered with a
// generated counselor turn.
type CounselorService interface {
	Chat(ctx context.Context, user identity.Identity, content string) (*types.Message, *types.Message, error)
	GetHistory(ctx context.Context, user identity.Identity, limit int) ([]*types.Message, error)
}

type counselorService struct {
	db           *gorm.DB
	log          *logger.Logger
	chatService  ChatService
	openaiClient openai.Client
}

func NewCounselorService(
	db *gorm.DB,
	log *logger.Logger,
	chatService ChatService,
	openaiClient openai.Client,
) CounselorService {
	serviceLog := log.With("service", "CounselorService")
	return &counselorService{
		db:           db,
		log:          serviceLog,
		chatService:  chatService,
		openaiClient: openaiClient,
	}
}

// Chat stores the user's turn, generates the counselor's reply, and stores
// that too. Both persisted messages are returned. If generation fails after
// the user turn is stored, the user turn survives and the reply can be
// retried.
func (cns *counselorService) Chat(ctx context.Context, user identity.Identity, content string) (*types.Message, *types.Message, error) {
	if user.IsCounselor() {
		return nil, nil, fmt.Errorf("%w: counselor cannot chat with itself", apperrors.ErrInvalidArgument)
	}
	if content == "" {
		return nil, nil, fmt.Errorf("%w: message content required", apperrors.ErrInvalidArgument)
	}

	room, err := cns.chatService.OpenRoom(ctx, user, identity.Counselor())
	if err != nil {
		return nil, nil, err
	}

	history, err := cns.chatService.GetMessages(ctx, user, room.ID, historyTurnLimit)
	if err != nil {
		return nil, nil, err
	}

	userMsg, err := cns.chatService.SendMessage(ctx, user, room.ID, content)
	if err != nil {
		return nil, nil, err
	}

	turns := make([]openai.ChatTurn, 0, len(history)+2)
	turns = append(turns, openai.ChatTurn{Role: "system", Content: counselorPersona})
	for _, m := range history {
		role := "user"
		if identity.FromStored(m.SenderID).IsCounselor() {
			role = "assistant"
		}
		turns = append(turns, openai.ChatTurn{Role: role, Content: m.Content})
	}
	turns = append(turns, openai.ChatTurn{Role: "user", Content: content})

	reply, err := cns.openaiClient.ChatComplete(ctx, turns)
	if err != nil {
		return userMsg, nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	counselorMsg, err := cns.chatService.SendMessage(ctx, identity.Counselor(), room.ID, reply)
	if err != nil {
		return userMsg, nil, err
	}
	return userMsg, counselorMsg, nil
}

func (cns *counselorService) GetHistory(ctx context.Context, user identity.Identity, limit int) ([]*types.Message, error) {
	room, err := cns.chatService.OpenRoom(ctx, user, identity.Counselor())
	if err != nil {
		return nil, err
	}
	return cns.chatService.GetMessages(ctx, user, room.ID, limit)
}
