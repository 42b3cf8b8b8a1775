package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/types"
)

type PostRepo interface {
	Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Post, error)
	GetByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string) ([]*types.Post, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Post, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, postID uuid.UUID, embedding *string) error
	// ReattachByAnonToken moves every post under anonToken to userID and
	// clears the token in a single statement, so the migration is atomic.
	// Returns the number of rows moved.
	ReattachByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string, userID uuid.UUID) (int64, error)
}

type postRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo {
	repoLog := baseLog.With("repo", "PostRepo")
	return &postRepo{db: db, log: repoLog}
}

func (pr *postRepo) Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(posts) == 0 {
		return []*types.Post{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (pr *postRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Post
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *postRepo) GetByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Post
	if anonToken == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("anon_token = ?", anonToken).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *postRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Post
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *postRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, postID uuid.UUID, embedding *string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Post{}).
		Where("id = ?", postID).
		Update("embedding", embedding).Error
}

func (pr *postRepo) ReattachByAnonToken(ctx context.Context, tx *gorm.DB, anonToken string, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if anonToken == "" {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Post{}).
		Where("anon_token = ?", anonToken).
		Updates(map[string]any{
			"user_id":    userID,
			"anon_token": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
