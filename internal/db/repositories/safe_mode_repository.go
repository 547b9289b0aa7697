package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const safeModeRowID = 1

type SafeModeRepository struct {
	db *gorm.DB
}

func NewSafeModeRepository(db *gorm.DB) *SafeModeRepository {
	return &SafeModeRepository{db: db}
}

// Get returns the persisted state; a missing row means disabled.
func (r *SafeModeRepository) Get(ctx context.Context) (*gormModels.SafeModeState, error) {
	var state gormModels.SafeModeState
	err := r.db.WithContext(ctx).Where("id = ?", safeModeRowID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &gormModels.SafeModeState{ID: safeModeRowID}, nil
		}
		return nil, fmt.Errorf("failed to read safe mode: %w", err)
	}
	return &state, nil
}

func (r *SafeModeRepository) Set(ctx context.Context, enabled bool, actor string) (*gormModels.SafeModeState, error) {
	state := &gormModels.SafeModeState{
		ID:        safeModeRowID,
		Enabled:   enabled,
		UpdatedBy: actor,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(state).Error
	if err != nil {
		return nil, fmt.Errorf("failed to write safe mode: %w", err)
	}
	return state, nil
}
