package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/profile"
	"github.com/kizunalabs/kizuna-backend/internal/repos"
	"github.com/kizunalabs/kizuna-backend/internal/types"

	apperrors "github.com/kizunalabs/kizuna-backend/internal/pkg/errors"
)

// ReconcileService folds posts written under a pre-login anonymous token
// into a permanent identity. It is invoked speculatively on every login and
// is idempotent: once the token has no posts left, reconciliation is a
// no-op.
type ReconcileService interface {
	// Reconcile returns the number of posts migrated.
	Reconcile(ctx context.Context, anonToken string, userID uuid.UUID) (int64, error)
}

type reconcileService struct {
	db          *gorm.DB
	log         *logger.Logger
	postRepo    repos.PostRepo
	profileRepo repos.ValueProfileRepo
	cfg         profile.Config
}

func NewReconcileService(
	db *gorm.DB,
	log *logger.Logger,
	postRepo repos.PostRepo,
	profileRepo repos.ValueProfileRepo,
	cfg profile.Config,
) ReconcileService {
	serviceLog := log.With("service", "ReconcileService")
	return &reconcileService{
		db:          db,
		log:         serviceLog,
		postRepo:    postRepo,
		profileRepo: profileRepo,
		cfg:         cfg,
	}
}

func (rs *reconcileService) Reconcile(ctx context.Context, anonToken string, userID uuid.UUID) (int64, error) {
	if anonToken == "" {
		return 0, nil
	}
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: reconciliation target must be a human identity", apperrors.ErrInvalidArgument)
	}

	posts, err := rs.postRepo.GetByAnonToken(ctx, nil, anonToken)
	if err != nil {
		return 0, fmt.Errorf("load anonymous posts: %w", err)
	}
	if len(posts) == 0 {
		return 0, nil
	}

	// Single-statement update: either every post moves or none do. A failure
	// here leaves the token's posts untouched, so the caller can retry the
	// whole reconciliation.
	moved, err := rs.postRepo.ReattachByAnonToken(ctx, nil, anonToken, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrReconciliationPartial, err)
	}
	if moved != int64(len(posts)) {
		rs.log.Warn("Reattached post count differs from snapshot",
			"snapshot", len(posts),
			"moved", moved,
		)
	}

	// posts is ordered newest first by the repo.
	latest := posts[0]

	existing, err := rs.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return moved, fmt.Errorf("load existing profile: %w", err)
	}

	// A returning user's chosen name takes precedence over whatever nickname
	// was attached to the anonymous session.
	nickname := latest.Nickname
	if existing != nil && existing.Nickname != "" {
		nickname = existing.Nickname
	}

	embedding := rs.provisionalEmbedding(latest, existing)

	vp := &types.ValueProfile{
		UserID:    userID,
		Nickname:  nickname,
		Content:   latest.Content,
		Embedding: embedding,
		UpdatedAt: time.Now(),
	}
	if err := rs.profileRepo.Upsert(ctx, nil, vp); err != nil {
		return moved, fmt.Errorf("upsert profile: %w", err)
	}

	rs.log.Info("Reconciled anonymous posts",
		"user_id", userID,
		"moved", moved,
	)
	return moved, nil
}

// provisionalEmbedding picks the migrated latest post's vector, normalized.
// The value only has to hold until the next aggregator run; a malformed
// stored vector falls back to the existing profile vector rather than
// failing the migration.
func (rs *reconcileService) provisionalEmbedding(latest *types.Post, existing *types.ValueProfile) *string {
	vec, err := repos.DecodeEmbedding(latest.Embedding, rs.cfg.EmbedDim)
	if err != nil {
		rs.log.Warn("Skipping unusable embedding on reconciled post",
			"post_id", latest.ID,
			"error", err,
		)
	}
	if vec != nil {
		encoded, encErr := repos.EncodeEmbedding(profile.Normalize(vec))
		if encErr == nil {
			return encoded
		}
		rs.log.Warn("Failed to encode provisional embedding", "error", encErr)
	}
	if existing != nil {
		return existing.Embedding
	}
	return nil
}
