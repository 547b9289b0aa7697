package repositories

import (
	"context"
	"errors"
	"fmt"

	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SpotlightRepositoryGORM struct {
	db *gorm.DB
}

func NewSpotlightRepositoryGORM(db *gorm.DB) *SpotlightRepositoryGORM {
	return &SpotlightRepositoryGORM{db: db}
}

func (r *SpotlightRepositoryGORM) first(ctx context.Context, query string, args ...interface{}) (*gormModels.Spotlight, error) {
	var s gormModels.Spotlight
	err := r.db.WithContext(ctx).Where(query, args...).Order("started_at DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch spotlight: %w", err)
	}
	return &s, nil
}

func (r *SpotlightRepositoryGORM) FindByID(ctx context.Context, id string) (*gormModels.Spotlight, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *SpotlightRepositoryGORM) FindActive(ctx context.Context) (*gormModels.Spotlight, error) {
	return r.first(ctx, "status = ?", gormModels.SpotlightActive)
}

func (r *SpotlightRepositoryGORM) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Spotlight, error) {
	var out []gormModels.Spotlight

	q := r.db.WithContext(ctx).Order("started_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list spotlights: %w", err)
	}
	return out, nil
}

func (r *SpotlightRepositoryGORM) FindByMonth(ctx context.Context, month string) ([]gormModels.Spotlight, error) {
	var out []gormModels.Spotlight
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("started_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list spotlights for %s: %w", month, err)
	}
	return out, nil
}

func (r *SpotlightRepositoryGORM) Create(ctx context.Context, s *gormModels.Spotlight) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create spotlight: %w", err)
	}
	return nil
}

func (r *SpotlightRepositoryGORM) Update(ctx context.Context, s *gormModels.Spotlight) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Spotlight{}).
		Where("id = ?", s.ID).
		Select("*").
		Omit("created_at").
		Updates(s)
	if result.Error != nil {
		return fmt.Errorf("failed to update spotlight: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("spotlight not found with ID: %s", s.ID)
	}
	return nil
}

func (r *SpotlightRepositoryGORM) Upsert(ctx context.Context, s *gormModels.Spotlight) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to upsert spotlight: %w", err)
	}
	return nil
}

func (r *SpotlightRepositoryGORM) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&gormModels.Spotlight{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete spotlight: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("spotlight not found with ID: %s", id)
	}
	return nil
}
