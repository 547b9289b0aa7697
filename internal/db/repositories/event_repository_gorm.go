package repositories

import (
	"context"
	"errors"
	"fmt"

	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepositoryGORM struct {
	db *gorm.DB
}

// NewEventRepositoryGORM creates a new GORM-based event repository
func NewEventRepositoryGORM(db *gorm.DB) *EventRepositoryGORM {
	return &EventRepositoryGORM{db: db}
}

func (r *EventRepositoryGORM) withRegistrations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Registrations", func(db *gorm.DB) *gorm.DB {
		return db.Order("registered_at")
	})
}

func (r *EventRepositoryGORM) FindByID(ctx context.Context, id string) (*gormModels.Event, error) {
	var event gormModels.Event

	err := r.withRegistrations(ctx).
		Where("id = ?", id).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	return &event, nil
}

func (r *EventRepositoryGORM) FindAll(ctx context.Context, kind string, publishedOnly bool, limit, offset int) ([]gormModels.Event, error) {
	var events []gormModels.Event

	q := r.withRegistrations(ctx).Order("date").Order("id")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *EventRepositoryGORM) FindPublishedInMonth(ctx context.Context, month string) ([]gormModels.Event, error) {
	start, end, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	var events []gormModels.Event
	err = r.withRegistrations(ctx).
		Where("is_published = ? AND date >= ? AND date < ?", true, start, end).
		Order("date").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", month, err)
	}
	return events, nil
}

func (r *EventRepositoryGORM) Create(ctx context.Context, e *gormModels.Event) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepositoryGORM) Update(ctx context.Context, e *gormModels.Event) error {
	result := r.db.WithContext(ctx).
		Model(&gormModels.Event{}).
		Where("id = ?", e.ID).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(e)

	if result.Error != nil {
		return fmt.Errorf("failed to update event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found with ID: %s", e.ID)
	}
	return nil
}

// Upsert writes the event row and its registrations; used by the blob import.
func (r *EventRepositoryGORM) Upsert(ctx context.Context, e *gormModels.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(e).Error
		if err != nil {
			return fmt.Errorf("failed to upsert event: %w", err)
		}
		for i := range e.Registrations {
			reg := &e.Registrations[i]
			reg.EventID = e.ID
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "event_id"}, {Name: "member_login"}},
				DoNothing: true,
			}).Create(reg).Error
			if err != nil {
				return fmt.Errorf("failed to upsert registration: %w", err)
			}
		}
		return nil
	})
}

func (r *EventRepositoryGORM) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&gormModels.EventRegistration{}).Error; err != nil {
			return fmt.Errorf("failed to delete registrations: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&gormModels.Event{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete event: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("event not found with ID: %s", id)
		}
		return nil
	})
}

// AddRegistration checks for an existing registration before inserting; the
// unique index catches concurrent inserts that slip past the check.
func (r *EventRepositoryGORM) AddRegistration(ctx context.Context, reg *gormModels.EventRegistration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&gormModels.EventRegistration{}).
			Where("event_id = ? AND member_login = ?", reg.EventID, reg.MemberLogin).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create registration: %w", err)
		}
		return nil
	})
}

func (r *EventRepositoryGORM) RemoveRegistration(ctx context.Context, eventID, login string) error {
	result := r.db.WithContext(ctx).
		Where("event_id = ? AND member_login = ?", eventID, login).
		Delete(&gormModels.EventRegistration{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete registration: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("registration not found for %s on %s", login, eventID)
	}
	return nil
}
