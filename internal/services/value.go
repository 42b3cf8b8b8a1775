package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/clients/openai"
	"github.com/kizunalabs/kizuna-backend/internal/clients/pinecone"
	"github.com/kizunalabs/kizuna-backend/internal/identity"
	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/profile"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// SaveValueInput is one submitted reflection. Exactly one of UserID or
// AnonToken identifies the author.
type SaveValueInput struct {
	UserID    *uuid.UUID
	AnonToken string
	Nickname  string
	Content   string
}

// ValueService runs the full save-value flow: embed the reflection, store
// the post, fold history into the representative profile, sync the vector
// store, and resolve matches.
type ValueService interface {
	SaveValue(ctx context.Context, in SaveValueInput) ([]profile.Match, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.ValueProfile, error)
}

type valueService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          profile.Config
	openaiClient openai.Client
	pineconeCli  pinecone.Client
	pineconeHost string
	postRepo     repos.PostRepo
	profileRepo  repos.ValueProfileRepo
	userRepo     repos.UserRepo
}

func NewValueService(
	db *gorm.DB,
	log *logger.Logger,
	cfg profile.Config,
	openaiClient openai.Client,
	pineconeCli pinecone.Client,
	pineconeHost string,
	postRepo repos.PostRepo,
	profileRepo repos.ValueProfileRepo,
	userRepo repos.UserRepo,
) ValueService {
	serviceLog := log.With("service", "ValueService")
	return &valueService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		openaiClient: openaiClient,
		pineconeCli:  pineconeCli,
		pineconeHost: pineconeHost,
		postRepo:     postRepo,
		profileRepo:  profileRepo,
		userRepo:     userRepo,
	}
}

func (vs *valueService) SaveValue(ctx context.Context, in SaveValueInput) ([]profile.Match, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content required", apperrors.ErrInvalidArgument)
	}
	if in.UserID == nil && in.AnonToken == "" {
		return nil, fmt.Errorf("%w: either user id or anonymous token required", apperrors.ErrInvalidArgument)
	}
	if in.UserID != nil && in.AnonToken != "" {
		return nil, fmt.Errorf("%w: user id and anonymous token are mutually exclusive", apperrors.ErrInvalidArgument)
	}

	now := time.Now()

	// An empty nickname on an authenticated save must not blank the stored
	// profile nickname; the account's display name stands in.
	nickname := in.Nickname
	if in.UserID != nil && nickname == "" {
		nickname = vs.displayNameFor(ctx, *in.UserID)
	}

	newEmbedding, err := vs.embedContent(ctx, in.Content)
	if err != nil {
		return nil, err
	}

	post := &types.Post{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Nickname:  nickname,
		Content:   in.Content,
		CreatedAt: now,
	}
	if in.AnonToken != "" {
		tok := in.AnonToken
		post.AnonToken = &tok
	}
	if encoded, encErr := repos.EncodeEmbedding(newEmbedding); encErr == nil {
		post.Embedding = encoded
	} else {
		vs.log.Warn("Failed to encode post embedding", "error", encErr)
	}
	if _, err := vs.postRepo.Create(ctx, nil, []*types.Post{post}); err != nil {
		return nil, fmt.Errorf("store post: %w", err)
	}

	// Anonymous posts are held until reconciliation; no profile to update
	// and no matches to compute yet.
	if in.UserID == nil {
		return nil, nil
	}
	userID := *in.UserID

	history, err := vs.loadHistory(ctx, userID, post.ID)
	if err != nil {
		return nil, err
	}

	profileVec := profile.Aggregate(newEmbedding, history, now, vs.cfg)

	encoded, err := repos.EncodeEmbedding(profileVec)
	if err != nil {
		return nil, fmt.Errorf("encode profile embedding: %w", err)
	}
	vp := &types.ValueProfile{
		UserID:    userID,
		Nickname:  nickname,
		Content:   in.Content,
		Embedding: encoded,
		UpdatedAt: now,
	}
	if err := vs.profileRepo.Upsert(ctx, nil, vp); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return vs.matchProfile(ctx, userID, nickname, in.Content, profileVec)
}

func (vs *valueService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.ValueProfile, error) {
	vp, err := vs.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if vp == nil {
		return nil, apperrors.ErrNotFound
	}
	return vp, nil
}

func (vs *valueService) displayNameFor(ctx context.Context, userID uuid.UUID) string {
	users, err := vs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		vs.log.Warn("Failed to load user for nickname fallback", "user_id", userID, "error", err)
		return ""
	}
	if len(users) == 0 {
		return ""
	}
	return users[0].DisplayName
}

func (vs *valueService) embedContent(ctx context.Context, content string) ([]float32, error) {
	vectors, err := vs.openaiClient.Embed(ctx, []string{content})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: embedding service returned no vector", apperrors.ErrUpstreamUnavailable)
	}
	newEmbedding := vectors[0]
	// A mismatched fresh embedding is fatal: there is nothing to aggregate.
	if vs.cfg.EmbedDim > 0 && len(newEmbedding) != vs.cfg.EmbedDim {
		return nil, fmt.Errorf("%w: want=%d got=%d", apperrors.ErrDimensionMismatch, vs.cfg.EmbedDim, len(newEmbedding))
	}
	return newEmbedding, nil
}

// loadHistory returns decay-aggregator entries for every prior post with a
// usable embedding. Corrupt rows are logged and skipped; one bad row must
// not block profile computation.
func (vs *valueService) loadHistory(ctx context.Context, userID uuid.UUID, excludePostID uuid.UUID) ([]profile.HistoryEntry, error) {
	posts, err := vs.postRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load post history: %w", err)
	}
	history := make([]profile.HistoryEntry, 0, len(posts))
	for _, p := range posts {
		if p.ID == excludePostID {
			continue
		}
		vec, decErr := repos.DecodeEmbedding(p.Embedding, vs.cfg.EmbedDim)
		if decErr != nil {
			vs.log.Warn("Skipping post with unusable stored embedding",
				"post_id", p.ID,
				"error", decErr,
			)
			continue
		}
		if vec == nil {
			continue
		}
		history = append(history, profile.HistoryEntry{Embedding: vec, CreatedAt: p.CreatedAt})
	}
	return history, nil
}

func (vs *valueService) matchProfile(ctx context.Context, userID uuid.UUID, nickname, content string, profileVec []float32) ([]profile.Match, error) {
	if vs.pineconeCli == nil || vs.pineconeHost == "" {
		vs.log.Warn("Vector store unavailable, returning no matches", "user_id", userID)
		return []profile.Match{}, nil
	}

	_, err := vs.pineconeCli.UpsertVectors(ctx, vs.pineconeHost, pinecone.UpsertRequest{
		Vectors: []pinecone.Vector{{
			ID:     userID.String(),
			Values: profileVec,
			Metadata: map[string]any{
				"nickname": nickname,
				"content":  content,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	// Over-fetch a little so dropping self still fills the page.
	resp, err := vs.pineconeCli.Query(ctx, vs.pineconeHost, pinecone.QueryRequest{
		Vector:          profileVec,
		TopK:            vs.cfg.MaxMatchResults + 2,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	raw := make([]profile.Candidate, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		candidateID, parseErr := uuid.Parse(m.ID)
		if parseErr != nil {
			vs.log.Warn("Skipping match with unparseable id", "id", m.ID, "error", parseErr)
			continue
		}
		raw = append(raw, profile.Candidate{
			Identity: identity.FromStored(candidateID),
			RawScore: m.Score,
			Name:     metadataString(m.Metadata, "nickname"),
			Content:  metadataString(m.Metadata, "content"),
		})
	}

	return profile.ResolveMatches(raw, identity.Human(userID), vs.cfg), nil
}

func metadataString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	if s, ok := md[key].(string); ok {
		return s
	}
	return ""
}
