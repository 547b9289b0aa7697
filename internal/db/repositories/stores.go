package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenf/portal/internal/constants"
	gormModels "tenf/portal/internal/models/gorm"
)

// ErrDuplicate is returned when a write would break a uniqueness rule
// (a second registration of the same member on an event).
var ErrDuplicate = errors.New("duplicate record")

// Lookups return (nil, nil) when the record does not exist.

type MemberStore interface {
	FindByLogin(ctx context.Context, login string) (*gormModels.Member, error)
	FindByDiscordID(ctx context.Context, discordID string) (*gormModels.Member, error)
	// FindAll pages through members ordered by login; limit <= 0 returns all.
	FindAll(ctx context.Context, limit, offset int) ([]gormModels.Member, error)
	Create(ctx context.Context, m *gormModels.Member) error
	Update(ctx context.Context, m *gormModels.Member) error
	Upsert(ctx context.Context, m *gormModels.Member) error
	Deactivate(ctx context.Context, login string) error
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*gormModels.Event, error)
	// FindAll filters by kind when non-empty and pages by date; limit <= 0
	// returns all.
	FindAll(ctx context.Context, kind string, publishedOnly bool, limit, offset int) ([]gormModels.Event, error)
	// FindPublishedInMonth returns published events dated in month (YYYY-MM).
	FindPublishedInMonth(ctx context.Context, month string) ([]gormModels.Event, error)
	Create(ctx context.Context, e *gormModels.Event) error
	Update(ctx context.Context, e *gormModels.Event) error
	Upsert(ctx context.Context, e *gormModels.Event) error
	Delete(ctx context.Context, id string) error
	AddRegistration(ctx context.Context, reg *gormModels.EventRegistration) error
	RemoveRegistration(ctx context.Context, eventID, login string) error
}

type EvaluationStore interface {
	Find(ctx context.Context, login, month string) (*gormModels.Evaluation, error)
	// FindAll pages through evaluations ordered by month then login.
	FindAll(ctx context.Context, limit, offset int) ([]gormModels.Evaluation, error)
	FindByMonth(ctx context.Context, month string) ([]gormModels.Evaluation, error)
	FindByMember(ctx context.Context, login string) ([]gormModels.Evaluation, error)
	Create(ctx context.Context, e *gormModels.Evaluation) error
	Update(ctx context.Context, e *gormModels.Evaluation) error
	Upsert(ctx context.Context, e *gormModels.Evaluation) error
	Delete(ctx context.Context, login, month string) error
}

type SpotlightStore interface {
	FindByID(ctx context.Context, id string) (*gormModels.Spotlight, error)
	FindActive(ctx context.Context) (*gormModels.Spotlight, error)
	// FindAll pages through spotlights, newest first.
	FindAll(ctx context.Context, limit, offset int) ([]gormModels.Spotlight, error)
	FindByMonth(ctx context.Context, month string) ([]gormModels.Spotlight, error)
	Create(ctx context.Context, s *gormModels.Spotlight) error
	Update(ctx context.Context, s *gormModels.Spotlight) error
	Upsert(ctx context.Context, s *gormModels.Spotlight) error
	Delete(ctx context.Context, id string) error
}

// monthBounds returns [start, end) for a YYYY-MM month.
func monthBounds(month string) (start, end time.Time, err error) {
	start, err = time.Parse(constants.MonthLayout, month)
	if err != nil {
		return start, end, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}
