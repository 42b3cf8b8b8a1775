package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/types"
)

type ValueProfileRepo interface {
	// GetByUserID returns (nil, nil) when no profile exists.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ValueProfile, error)
	Upsert(ctx context.Context, tx *gorm.DB, vp *types.ValueProfile) error
}

type valueProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValueProfileRepo(db *gorm.DB, baseLog *logger.Logger) ValueProfileRepo {
	repoLog := baseLog.With("repo", "ValueProfileRepo")
	return &valueProfileRepo{db: db, log: repoLog}
}

func (vr *valueProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ValueProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}
	var result types.ValueProfile
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (vr *valueProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, vp *types.ValueProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nickname", "content", "embedding", "updated_at"}),
		}).
		Create(vp).Error
}
