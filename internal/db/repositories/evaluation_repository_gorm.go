package repositories

import (
	"context"
	"errors"
	"fmt"

	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EvaluationRepositoryGORM struct {
	db *gorm.DB
}

func NewEvaluationRepositoryGORM(db *gorm.DB) *EvaluationRepositoryGORM {
	return &EvaluationRepositoryGORM{db: db}
}

func (r *EvaluationRepositoryGORM) Find(ctx context.Context, login, month string) (*gormModels.Evaluation, error) {
	var eval gormModels.Evaluation

	err := r.db.WithContext(ctx).
		Where("member_login = ? AND month = ?", login, month).
		First(&eval).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch evaluation: %w", err)
	}
	return &eval, nil
}

func (r *EvaluationRepositoryGORM) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Evaluation, error) {
	var evals []gormModels.Evaluation

	q := r.db.WithContext(ctx).Order("month").Order("member_login")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&evals).Error; err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

func (r *EvaluationRepositoryGORM) FindByMonth(ctx context.Context, month string) ([]gormModels.Evaluation, error) {
	var evals []gormModels.Evaluation
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("member_login").
		Find(&evals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for %s: %w", month, err)
	}
	return evals, nil
}

func (r *EvaluationRepositoryGORM) FindByMember(ctx context.Context, login string) ([]gormModels.Evaluation, error) {
	var evals []gormModels.Evaluation
	err := r.db.WithContext(ctx).
		Where("member_login = ?", login).
		Order("month").
		Find(&evals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for %s: %w", login, err)
	}
	return evals, nil
}

// Upsert replaces the whole row; callers merge sub-scores beforehand.
func (r *EvaluationRepositoryGORM) Upsert(ctx context.Context, e *gormModels.Evaluation) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_login"}, {Name: "month"}},
			UpdateAll: true,
		}).
		Create(e).Error
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}
	return nil
}

func (r *EvaluationRepositoryGORM) Create(ctx context.Context, e *gormModels.Evaluation) error {
	existing, err := r.Find(ctx, e.MemberLogin, e.Month)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

// Update writes every column of an existing (login, month) row.
func (r *EvaluationRepositoryGORM) Update(ctx context.Context, e *gormModels.Evaluation) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Evaluation{}).
		Where("member_login = ? AND month = ?", e.MemberLogin, e.Month).
		Select("*").
		Updates(e)
	if result.Error != nil {
		return fmt.Errorf("failed to update evaluation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("evaluation not found: %s", e.Key())
	}
	return nil
}

func (r *EvaluationRepositoryGORM) Delete(ctx context.Context, login, month string) error {
	result := r.db.WithContext(ctx).
		Where("member_login = ? AND month = ?", login, month).
		Delete(&gormModels.Evaluation{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete evaluation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("evaluation not found: %s", gormModels.EvaluationKey(login, month))
	}
	return nil
}
