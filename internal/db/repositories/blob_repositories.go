package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/constants"
	gormModels "tenf/portal/internal/models/gorm"

	"github.com/google/uuid"
)

// Blob-backed implementations of the entity stores. They hold the same
// documents the relational tables do, keyed the way the consistency check
// expects: members by login, events and spotlights by id, evaluations by
// "login:month".

type MemberBlobRepository struct {
	col *blob.Collection[gormModels.Member]
}

func NewMemberBlobRepository(s blob.Store) *MemberBlobRepository {
	return &MemberBlobRepository{col: blob.NewCollection[gormModels.Member](s, constants.StoreMembers)}
}

func (r *MemberBlobRepository) FindByLogin(ctx context.Context, login string) (*gormModels.Member, error) {
	m, ok := r.col.Get(ctx, login)
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (r *MemberBlobRepository) FindByDiscordID(ctx context.Context, discordID string) (*gormModels.Member, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].DiscordID != nil && *all[i].DiscordID == discordID {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (r *MemberBlobRepository) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Member, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	return page(all, limit, offset), nil
}

func (r *MemberBlobRepository) Create(ctx context.Context, m *gormModels.Member) error {
	if _, ok := r.col.Get(ctx, m.TwitchLogin); ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	return r.col.Put(ctx, m.TwitchLogin, m)
}

func (r *MemberBlobRepository) Update(ctx context.Context, m *gormModels.Member) error {
	if _, ok := r.col.Get(ctx, m.TwitchLogin); !ok {
		return fmt.Errorf("member not found with login: %s", m.TwitchLogin)
	}
	m.UpdatedAt = time.Now().UTC()
	return r.col.Put(ctx, m.TwitchLogin, m)
}

func (r *MemberBlobRepository) Upsert(ctx context.Context, m *gormModels.Member) error {
	m.UpdatedAt = time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	return r.col.Put(ctx, m.TwitchLogin, m)
}

func (r *MemberBlobRepository) Deactivate(ctx context.Context, login string) error {
	m, ok := r.col.Get(ctx, login)
	if !ok {
		return fmt.Errorf("member not found with login: %s", login)
	}
	m.IsActive = false
	return r.Update(ctx, m)
}

type EventBlobRepository struct {
	col *blob.Collection[gormModels.Event]
}

func NewEventBlobRepository(s blob.Store) *EventBlobRepository {
	return &EventBlobRepository{col: blob.NewCollection[gormModels.Event](s, constants.StoreEvents)}
}

func (r *EventBlobRepository) FindByID(ctx context.Context, id string) (*gormModels.Event, error) {
	e, ok := r.col.Get(ctx, id)
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (r *EventBlobRepository) FindAll(ctx context.Context, kind string, publishedOnly bool, limit, offset int) ([]gormModels.Event, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if kind != "" && e.Kind != kind {
			continue
		}
		if publishedOnly && !e.IsPublished {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r *EventBlobRepository) FindPublishedInMonth(ctx context.Context, month string) ([]gormModels.Event, error) {
	start, end, err := monthBounds(month)
	if err != nil {
		return nil, err
	}
	published, err := r.FindAll(ctx, "", true, 0, 0)
	if err != nil {
		return nil, err
	}
	out := published[:0]
	for _, e := range published {
		if !e.Date.Before(start) && e.Date.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *EventBlobRepository) Create(ctx context.Context, e *gormModels.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Registrations == nil {
		e.Registrations = []gormModels.EventRegistration{}
	}
	return r.col.Put(ctx, e.ID, e)
}

// Update keeps the stored registrations; they change only through
// AddRegistration and RemoveRegistration.
func (r *EventBlobRepository) Update(ctx context.Context, e *gormModels.Event) error {
	cur, ok := r.col.Get(ctx, e.ID)
	if !ok {
		return fmt.Errorf("event not found with ID: %s", e.ID)
	}
	e.Registrations = cur.Registrations
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	return r.col.Put(ctx, e.ID, e)
}

func (r *EventBlobRepository) Upsert(ctx context.Context, e *gormModels.Event) error {
	return r.col.Put(ctx, e.ID, e)
}

func (r *EventBlobRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.col.Get(ctx, id); !ok {
		return fmt.Errorf("event not found with ID: %s", id)
	}
	return r.col.Delete(ctx, id)
}

func (r *EventBlobRepository) AddRegistration(ctx context.Context, reg *gormModels.EventRegistration) error {
	e, ok := r.col.Get(ctx, reg.EventID)
	if !ok {
		return fmt.Errorf("event not found with ID: %s", reg.EventID)
	}
	for _, existing := range e.Registrations {
		if existing.MemberLogin == reg.MemberLogin {
			return ErrDuplicate
		}
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	e.Registrations = append(e.Registrations, *reg)
	return r.col.Put(ctx, e.ID, e)
}

func (r *EventBlobRepository) RemoveRegistration(ctx context.Context, eventID, login string) error {
	e, ok := r.col.Get(ctx, eventID)
	if !ok {
		return fmt.Errorf("event not found with ID: %s", eventID)
	}
	for i, existing := range e.Registrations {
		if existing.MemberLogin == login {
			e.Registrations = append(e.Registrations[:i], e.Registrations[i+1:]...)
			return r.col.Put(ctx, e.ID, e)
		}
	}
	return fmt.Errorf("registration not found for %s on %s", login, eventID)
}

type EvaluationBlobRepository struct {
	col *blob.Collection[gormModels.Evaluation]
}

func NewEvaluationBlobRepository(s blob.Store) *EvaluationBlobRepository {
	return &EvaluationBlobRepository{col: blob.NewCollection[gormModels.Evaluation](s, constants.StoreEvaluations)}
}

func (r *EvaluationBlobRepository) Find(ctx context.Context, login, month string) (*gormModels.Evaluation, error) {
	e, ok := r.col.Get(ctx, gormModels.EvaluationKey(login, month))
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (r *EvaluationBlobRepository) filter(ctx context.Context, keep func(*gormModels.Evaluation) bool) ([]gormModels.Evaluation, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *EvaluationBlobRepository) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Evaluation, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Month != all[j].Month {
			return all[i].Month < all[j].Month
		}
		return all[i].MemberLogin < all[j].MemberLogin
	})
	return page(all, limit, offset), nil
}

func (r *EvaluationBlobRepository) FindByMonth(ctx context.Context, month string) ([]gormModels.Evaluation, error) {
	return r.filter(ctx, func(e *gormModels.Evaluation) bool { return e.Month == month })
}

func (r *EvaluationBlobRepository) FindByMember(ctx context.Context, login string) ([]gormModels.Evaluation, error) {
	out, err := r.filter(ctx, func(e *gormModels.Evaluation) bool { return e.MemberLogin == login })
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *EvaluationBlobRepository) Create(ctx context.Context, e *gormModels.Evaluation) error {
	if _, ok := r.col.Get(ctx, e.Key()); ok {
		return ErrDuplicate
	}
	return r.Upsert(ctx, e)
}

func (r *EvaluationBlobRepository) Update(ctx context.Context, e *gormModels.Evaluation) error {
	if _, ok := r.col.Get(ctx, e.Key()); !ok {
		return fmt.Errorf("evaluation not found: %s", e.Key())
	}
	return r.Upsert(ctx, e)
}

func (r *EvaluationBlobRepository) Upsert(ctx context.Context, e *gormModels.Evaluation) error {
	e.UpdatedAt = time.Now().UTC()
	return r.col.Put(ctx, e.Key(), e)
}

func (r *EvaluationBlobRepository) Delete(ctx context.Context, login, month string) error {
	key := gormModels.EvaluationKey(login, month)
	if _, ok := r.col.Get(ctx, key); !ok {
		return fmt.Errorf("evaluation not found: %s", key)
	}
	return r.col.Delete(ctx, key)
}

type SpotlightBlobRepository struct {
	col *blob.Collection[gormModels.Spotlight]
}

func NewSpotlightBlobRepository(s blob.Store) *SpotlightBlobRepository {
	return &SpotlightBlobRepository{col: blob.NewCollection[gormModels.Spotlight](s, constants.StoreSpotlights)}
}

func (r *SpotlightBlobRepository) FindByID(ctx context.Context, id string) (*gormModels.Spotlight, error) {
	s, ok := r.col.Get(ctx, id)
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (r *SpotlightBlobRepository) FindActive(ctx context.Context) (*gormModels.Spotlight, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	var latest *gormModels.Spotlight
	for i := range all {
		if all[i].Status != gormModels.SpotlightActive {
			continue
		}
		if latest == nil || all[i].StartedAt.After(latest.StartedAt) {
			latest = &all[i]
		}
	}
	return latest, nil
}

func (r *SpotlightBlobRepository) FindAll(ctx context.Context, limit, offset int) ([]gormModels.Spotlight, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].StartedAt.After(all[j].StartedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

func (r *SpotlightBlobRepository) FindByMonth(ctx context.Context, month string) ([]gormModels.Spotlight, error) {
	all, err := r.col.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.Month == month {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *SpotlightBlobRepository) Create(ctx context.Context, s *gormModels.Spotlight) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	return r.col.Put(ctx, s.ID, s)
}

func (r *SpotlightBlobRepository) Update(ctx context.Context, s *gormModels.Spotlight) error {
	if _, ok := r.col.Get(ctx, s.ID); !ok {
		return fmt.Errorf("spotlight not found with ID: %s", s.ID)
	}
	s.UpdatedAt = time.Now().UTC()
	return r.col.Put(ctx, s.ID, s)
}

func (r *SpotlightBlobRepository) Upsert(ctx context.Context, s *gormModels.Spotlight) error {
	return r.col.Put(ctx, s.ID, s)
}

func (r *SpotlightBlobRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.col.Get(ctx, id); !ok {
		return fmt.Errorf("spotlight not found with ID: %s", id)
	}
	return r.col.Delete(ctx, id)
}

func page[T any](all []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
