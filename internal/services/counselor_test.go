package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/sse"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

func newCounselorFixture(openaiCli *fakeOpenAI) (CounselorService, *fakeMessageRepo, *fakeConversationRepo) {
	convRepo := &fakeConversationRepo{}
	msgRepo := &fakeMessageRepo{}
	chatSvc := NewChatService(nil, testLogger(), convRepo, msgRepo, sse.NewHub(testLogger()), nil)
	return NewCounselorService(nil, testLogger(), chatSvc, openaiCli), msgRepo, convRepo
}

func TestCounselorChatStoresBothTurns(t *testing.T) {
	openaiCli := &fakeOpenAI{reply: "それは大切な気持ちですね。"}
	svc, msgRepo, _ := newCounselorFixture(openaiCli)
	user := identity.Human(uuid.New())

	userMsg, reply, err := svc.Chat(context.Background(), user, "最近、何のために働いているのか分からなくて。")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userMsg == nil || reply == nil {
		t.Fatal("expected both turns persisted")
	}
	if userMsg.SenderID != user.StorageID() {
		t.Errorf("user turn sender want=%s got=%s", user.StorageID(), userMsg.SenderID)
	}
	if !identity.FromStored(reply.SenderID).IsCounselor() {
		t.Errorf("reply sender should be counselor, got %s", reply.SenderID)
	}
	if reply.Content != openaiCli.reply {
		t.Errorf("reply content want=%q got=%q", openaiCli.reply, reply.Content)
	}
	if len(msgRepo.messages) != 2 {
		t.Errorf("stored messages want=2 got=%d", len(msgRepo.messages))
	}
}

func TestCounselorChatReplaysHistoryWithRoles(t *testing.T) {
	openaiCli := &fakeOpenAI{reply: "ok"}
	svc, _, _ := newCounselorFixture(openaiCli)
	user := identity.Human(uuid.New())

	if _, _, err := svc.Chat(context.Background(), user, "first"); err != nil {
		t.Fatalf("first chat: %v", err)
	}
	if _, _, err := svc.Chat(context.Background(), user, "second"); err != nil {
		t.Fatalf("second chat: %v", err)
	}

	if len(openaiCli.chatTurns) != 2 {
		t.Fatalf("completion calls want=2 got=%d", len(openaiCli.chatTurns))
	}
	turns := openaiCli.chatTurns[1]
	// system + first user turn + first assistant turn + new user turn
	if len(turns) != 4 {
		t.Fatalf("turns want=4 got=%d", len(turns))
	}
	if turns[0].Role != "system" {
		t.Errorf("turns[0] role want=system got=%s", turns[0].Role)
	}
	if turns[1].Role != "user" || turns[1].Content != "first" {
		t.Errorf("turns[1] want user/first got %s/%q", turns[1].Role, turns[1].Content)
	}
	if turns[2].Role != "assistant" {
		t.Errorf("turns[2] role want=assistant got=%s", turns[2].Role)
	}
	if turns[3].Role != "user" || turns[3].Content != "second" {
		t.Errorf("turns[3] want user/second got %s/%q", turns[3].Role, turns[3].Content)
	}
}

func TestCounselorChatUpstreamFailureKeepsUserTurn(t *testing.T) {
	openaiCli := &fakeOpenAI{chatErr: errors.New("rate limited")}
	svc, msgRepo, _ := newCounselorFixture(openaiCli)
	user := identity.Human(uuid.New())

	userMsg, reply, err := svc.Chat(context.Background(), user, "hello")
	if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable got=%v", err)
	}
	if userMsg == nil {
		t.Error("user turn should survive a failed completion")
	}
	if reply != nil {
		t.Error("no reply expected on failure")
	}
	if len(msgRepo.messages) != 1 {
		t.Errorf("stored messages want=1 got=%d", len(msgRepo.messages))
	}
}

func TestCounselorLongConversationReplaysRecentWindow(t *testing.T) {
	openaiCli := &fakeOpenAI{reply: "ok"}
	svc, msgRepo, convRepo := newCounselorFixture(openaiCli)
	user := identity.Human(uuid.New())

	// open the room, then seed a conversation well past the replay window
	if _, err := svc.GetHistory(context.Background(), user, 0); err != nil {
		t.Fatalf("open room: %v", err)
	}
	room := convRepo.conversations[0]
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 40; i++ {
		sender := user.StorageID()
		if i%2 == 1 {
			sender = identity.Counselor().StorageID()
		}
		msgRepo.messages = append(msgRepo.messages, &types.Message{
			ID:             uuid.New(),
			ConversationID: room.ID,
			SenderID:       sender,
			Content:        fmt.Sprintf("msg-%02d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}

	if _, _, err := svc.Chat(context.Background(), user, "current topic"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	turns := openaiCli.chatTurns[0]
	// system + 30 most recent history turns + new user turn
	if len(turns) != 32 {
		t.Fatalf("turns want=32 got=%d", len(turns))
	}
	if turns[1].Content != "msg-10" {
		t.Errorf("replay window should start at msg-10, got %q", turns[1].Content)
	}
	if turns[30].Content != "msg-39" || turns[30].Role != "assistant" {
		t.Errorf("replay window should end with assistant msg-39, got %s/%q", turns[30].Role, turns[30].Content)
	}
	if turns[31].Role != "user" || turns[31].Content != "current topic" {
		t.Errorf("last turn want user/current topic got %s/%q", turns[31].Role, turns[31].Content)
	}
}

func TestCounselorRejectsCounselorCaller(t *testing.T) {
	svc, _, _ := newCounselorFixture(&fakeOpenAI{reply: "x"})
	if _, _, err := svc.Chat(context.Background(), identity.Counselor(), "hi"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got=%v", err)
	}
}
