package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kizunalabs/kizuna-backend/internal/profile"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

func strPtr(s string) *string { return &s }

func anonPost(token, nickname, content string, vec []float32, createdAt time.Time) *types.Post {
	p := &types.Post{
		ID:        uuid.New(),
		AnonToken: strPtr(token),
		Nickname:  nickname,
		Content:   content,
		CreatedAt: createdAt,
	}
	if vec != nil {
		encoded, err := repos.EncodeEmbedding(vec)
		if err != nil {
			panic(err)
		}
		p.Embedding = encoded
	}
	return p
}

func newReconcileFixture(postRepo *fakePostRepo, profileRepo *fakeValueProfileRepo) ReconcileService {
	cfg := profile.Config{HalfLifeDays: 30, ScoreFloor: 0.1, MaxMatchResults: 5, EmbedDim: 3}
	return NewReconcileService(nil, testLogger(), postRepo, profileRepo, cfg)
}

func TestReconcileMovesAllPosts(t *testing.T) {
	userID := uuid.New()
	base := time.Now().Add(-72 * time.Hour)
	postRepo := &fakePostRepo{posts: []*types.Post{
		anonPost("tok-1", "guest", "first", []float32{1, 0, 0}, base),
		anonPost("tok-1", "guest", "second", []float32{0, 1, 0}, base.Add(time.Hour)),
		anonPost("tok-1", "guest", "third", []float32{0, 3, 4}, base.Add(2*time.Hour)),
		anonPost("tok-other", "someone", "unrelated", []float32{1, 1, 1}, base),
	}}
	profileRepo := newFakeValueProfileRepo()
	svc := newReconcileFixture(postRepo, profileRepo)

	moved, err := svc.Reconcile(context.Background(), "tok-1", userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved != 3 {
		t.Fatalf("moved want=3 got=%d", moved)
	}

	owned, _ := postRepo.GetByUserID(context.Background(), nil, userID)
	if len(owned) != 3 {
		t.Fatalf("owned posts want=3 got=%d", len(owned))
	}
	for _, p := range owned {
		if p.AnonToken != nil {
			t.Errorf("post %s still carries anon token", p.ID)
		}
	}

	remaining, _ := postRepo.GetByAnonToken(context.Background(), nil, "tok-other")
	if len(remaining) != 1 {
		t.Errorf("unrelated token posts want=1 got=%d", len(remaining))
	}

	vp := profileRepo.profiles[userID]
	if vp == nil {
		t.Fatal("expected provisional profile after reconciliation")
	}
	if vp.Content != "third" {
		t.Errorf("profile content want=third got=%q", vp.Content)
	}
	vec, decErr := repos.DecodeEmbedding(vp.Embedding, 3)
	if decErr != nil {
		t.Fatalf("decode profile embedding: %v", decErr)
	}
	// latest post vector {0,3,4} normalized
	want := []float32{0, 0.6, 0.8}
	for i := range want {
		if math.Abs(float64(vec[i]-want[i])) > 1e-6 {
			t.Errorf("embedding[%d] want=%v got=%v", i, want[i], vec[i])
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	userID := uuid.New()
	postRepo := &fakePostRepo{posts: []*types.Post{
		anonPost("tok-1", "guest", "only", []float32{1, 0, 0}, time.Now()),
	}}
	profileRepo := newFakeValueProfileRepo()
	svc := newReconcileFixture(postRepo, profileRepo)

	first, err := svc.Reconcile(context.Background(), "tok-1", userID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first != 1 {
		t.Fatalf("first call moved want=1 got=%d", first)
	}

	second, err := svc.Reconcile(context.Background(), "tok-1", userID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second != 0 {
		t.Errorf("second call moved want=0 got=%d", second)
	}
	if profileRepo.upserts != 1 {
		t.Errorf("profile upserts want=1 got=%d", profileRepo.upserts)
	}
}

func TestReconcileEmptyTokenNoOp(t *testing.T) {
	postRepo := &fakePostRepo{}
	profileRepo := newFakeValueProfileRepo()
	svc := newReconcileFixture(postRepo, profileRepo)

	moved, err := svc.Reconcile(context.Background(), "", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved != 0 {
		t.Errorf("moved want=0 got=%d", moved)
	}
	if profileRepo.upserts != 0 {
		t.Errorf("profile upserts want=0 got=%d", profileRepo.upserts)
	}
}

func TestReconcileRejectsCounselorTarget(t *testing.T) {
	svc := newReconcileFixture(&fakePostRepo{}, newFakeValueProfileRepo())

	_, err := svc.Reconcile(context.Background(), "tok-1", uuid.Nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got=%v", err)
	}
}

func TestReconcileExistingNicknameWins(t *testing.T) {
	userID := uuid.New()
	postRepo := &fakePostRepo{posts: []*types.Post{
		anonPost("tok-1", "guest", "latest thought", []float32{1, 0, 0}, time.Now()),
	}}
	profileRepo := newFakeValueProfileRepo()
	profileRepo.profiles[userID] = &types.ValueProfile{
		UserID:   userID,
		Nickname: "established",
		Content:  "old content",
	}
	svc := newReconcileFixture(postRepo, profileRepo)

	if _, err := svc.Reconcile(context.Background(), "tok-1", userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vp := profileRepo.profiles[userID]
	if vp.Nickname != "established" {
		t.Errorf("nickname want=established got=%q", vp.Nickname)
	}
	if vp.Content != "latest thought" {
		t.Errorf("content want=%q got=%q", "latest thought", vp.Content)
	}
}

func TestReconcileReattachFailureLeavesPosts(t *testing.T) {
	userID := uuid.New()
	postRepo := &fakePostRepo{
		posts:       []*types.Post{anonPost("tok-1", "guest", "only", []float32{1, 0, 0}, time.Now())},
		reattachErr: errors.New("connection reset"),
	}
	profileRepo := newFakeValueProfileRepo()
	svc := newReconcileFixture(postRepo, profileRepo)

	_, err := svc.Reconcile(context.Background(), "tok-1", userID)
	if !errors.Is(err, apperrors.ErrReconciliationPartial) {
		t.Fatalf("want ErrReconciliationPartial got=%v", err)
	}
	remaining, _ := postRepo.GetByAnonToken(context.Background(), nil, "tok-1")
	if len(remaining) != 1 {
		t.Errorf("posts should stay under token on failure, got %d", len(remaining))
	}
	if profileRepo.upserts != 0 {
		t.Errorf("no profile write expected on failed migration, got %d", profileRepo.upserts)
	}
}

func TestReconcileMalformedEmbeddingFallsBack(t *testing.T) {
	userID := uuid.New()
	bad := anonPost("tok-1", "guest", "latest", nil, time.Now())
	bad.Embedding = strPtr("not json")
	postRepo := &fakePostRepo{posts: []*types.Post{bad}}
	profileRepo := newFakeValueProfileRepo()
	existingVec, _ := repos.EncodeEmbedding([]float32{0, 1, 0})
	profileRepo.profiles[userID] = &types.ValueProfile{
		UserID:    userID,
		Nickname:  "established",
		Embedding: existingVec,
	}
	svc := newReconcileFixture(postRepo, profileRepo)

	if _, err := svc.Reconcile(context.Background(), "tok-1", userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vp := profileRepo.profiles[userID]
	if vp.Embedding == nil || *vp.Embedding != *existingVec {
		t.Errorf("expected existing embedding to survive malformed post vector")
	}
}
