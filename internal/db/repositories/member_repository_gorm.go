package repositories

import (
	"context"
	"errors"
	"fmt"

	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepositoryGORM struct {
	db *gorm.DB
}

// NewMemberRepositoryGORM creates a new GORM-based member repository
func NewMemberRepositoryGORM(db *gorm.DB) *MemberRepositoryGORM {
	return &MemberRepositoryGORM{db: db}
}

func (r *MemberRepositoryGORM) FindByLogin(ctx context.Context, login string) (*gormModels.Member, error) {
	var member gormModels.Member

	err := r.db.WithContext(ctx).
		Where("twitch_login = ?", login).
		First(&member).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	return &member, nil
}

func (r *MemberRepositoryGORM) FindByDiscordID(ctx context.Context, discordID string) (*gormModels.Member, error) {
	var member gormModels.Member

	err := r.db.WithContext(ctx).
		Where("discord_id = ?", discordID).
		First(&member).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch member by discord id: %w", err)
	}
	return &member, nil
}

func (r *MemberRepositoryGORM) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Member, error) {
	var members []gormModels.Member

	q := r.db.WithContext(ctx).Order("twitch_login")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (r *MemberRepositoryGORM) Create(ctx context.Context, m *gormModels.Member) error {
	existing, err := r.FindByLogin(ctx, m.TwitchLogin)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// Update writes every column, zero values included.
func (r *MemberRepositoryGORM) Update(ctx context.Context, m *gormModels.Member) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Member{}).
		Where("twitch_login = ?", m.TwitchLogin).
		Select("*").
		Omit("created_at").
		Updates(m)

	if result.Error != nil {
		return fmt.Errorf("failed to update member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("member not found with login: %s", m.TwitchLogin)
	}
	return nil
}

func (r *MemberRepositoryGORM) Upsert(ctx context.Context, m *gormModels.Member) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "twitch_login"}},
			UpdateAll: true,
		}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

func (r *MemberRepositoryGORM) Deactivate(ctx context.Context, login string) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Member{}).
		Where("twitch_login = ?", login).
		Update("is_active", false)

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("member not found with login: %s", login)
	}
	return nil
}
