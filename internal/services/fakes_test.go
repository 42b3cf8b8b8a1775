package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/clients/openai"
	"github.com/kizunalabs/kizuna-backend/internal/clients/pinecone"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/types"
)

func testLogger() *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	return log
}

// fakePostRepo keeps posts in memory and mirrors the ordering contract of
// the real repo: GetByUserID and GetByAnonToken return newest first.
type fakePostRepo struct {
	posts       []*types.Post
	reattachErr error
}

func (f *fakePostRepo) Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	f.posts = append(f.posts, posts...)
	return posts, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Post, error) {
	var out []*types.Post
	for _, p := range f.posts {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakePostRepo) GetByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string) ([]*types.Post, error) {
	var out []*types.Post
	if anonToken == "" {
		return out, nil
	}
	for _, p := range f.posts {
		if p.AnonToken != nil && *p.AnonToken == anonToken {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakePostRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Post, error) {
	out := append([]*types.Post{}, f.posts...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePostRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, postID uuid.UUID, embedding *string) error {
	for _, p := range f.posts {
		if p.ID == postID {
			p.Embedding = embedding
		}
	}
	return nil
}

func (f *fakePostRepo) ReattachByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string, userID uuid.UUID) (int64, error) {
	if f.reattachErr != nil {
		return 0, f.reattachErr
	}
	var moved int64
	if anonToken == "" {
		return 0, nil
	}
	for _, p := range f.posts {
		if p.AnonToken != nil && *p.AnonToken == anonToken {
			id := userID
			p.UserID = &id
			p.AnonToken = nil
			moved++
		}
	}
	return moved, nil
}

func sortNewestFirst(posts []*types.Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
}

type fakeValueProfileRepo struct {
	profiles map[uuid.UUID]*types.ValueProfile
	upserts  int
}

func newFakeValueProfileRepo() *fakeValueProfileRepo {
	return &fakeValueProfileRepo{profiles: make(map[uuid.UUID]*types.ValueProfile)}
}

func (f *fakeValueProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ValueProfile, error) {
	vp, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *vp
	return &cp, nil
}

func (f *fakeValueProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, vp *types.ValueProfile) error {
	cp := *vp
	f.profiles[vp.UserID] = &cp
	f.upserts++
	return nil
}

type fakeUserRepo struct {
	users []*types.User
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	f.users = append(f.users, users...)
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.users {
		for _, id := range userIDs {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.users {
		for _, e := range emails {
			if u.Email == e {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// fakeOpenAI returns a canned embedding for every input.
type fakeOpenAI struct {
	embedding []float32
	embedErr  error
	reply     string
	chatErr   error
	chatTurns [][]openai.ChatTurn
}

func (f *fakeOpenAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = f.embedding
	}
	return out, nil
}

func (f *fakeOpenAI) ChatComplete(ctx context.Context, turns []openai.ChatTurn) (string, error) {
	f.chatTurns = append(f.chatTurns, turns)
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.reply, nil
}

// fakePinecone records upserts and answers queries with canned matches.
type fakePinecone struct {
	upserted []pinecone.Vector
	matches  []pinecone.QueryMatch
	queryErr error
}

func (f *fakePinecone) DescribeIndex(ctx context.Context, indexName string) (*pinecone.IndexDescription, error) {
	return &pinecone.IndexDescription{Name: indexName, Host: "fake-host"}, nil
}

func (f *fakePinecone) UpsertVectors(ctx context.Context, host string, req pinecone.UpsertRequest) (*pinecone.UpsertResponse, error) {
	f.upserted = append(f.upserted, req.Vectors...)
	return &pinecone.UpsertResponse{UpsertedCount: int64(len(req.Vectors))}, nil
}

func (f *fakePinecone) Query(ctx context.Context, host string, req pinecone.QueryRequest) (*pinecone.QueryResponse, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &pinecone.QueryResponse{Matches: f.matches}, nil
}
