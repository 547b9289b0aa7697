package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/metrics"
	gormModels "tenf/portal/internal/models/gorm"
)

type EventInput struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	ImageURL    *string   `json:"imageUrl"`
	IsPublished bool      `json:"isPublished"`
}

func (in EventInput) validate() error {
	switch in.Kind {
	case gormModels.EventKindEvent, gormModels.EventKindIntegration:
	default:
		return common.Validationf("kind must be %q or %q", gormModels.EventKindEvent, gormModels.EventKindIntegration)
	}
	if strings.TrimSpace(in.Title) == "" {
		return common.Validationf("title is required")
	}
	if in.Date.IsZero() {
		return common.Validationf("date is required")
	}
	return nil
}

// Registrant identifies the member registering; it comes from the session.
type Registrant struct {
	TwitchLogin string
	DiscordID   string
	DisplayName string
}

type EventService struct {
	store   repositories.EventStore
	audit   AuditRecorder
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

func NewEventService(store repositories.EventStore, rec AuditRecorder, m *metrics.MetricsRegistry) *EventService {
	return &EventService{store: store, audit: rec, metrics: m, now: time.Now}
}

// List returns a page of events of kind ("" for both). Drafts are only
// listed for staff.
func (s *EventService) List(ctx context.Context, kind string, includeDrafts bool, limit, offset int) ([]gormModels.Event, error) {
	if limit < 0 || offset < 0 {
		return nil, common.Validationf("limit and offset must not be negative")
	}
	return s.store.FindAll(ctx, kind, !includeDrafts, limit, offset)
}

func (s *EventService) Get(ctx context.Context, id string, includeDrafts bool) (*gormModels.Event, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || (!e.IsPublished && !includeDrafts) {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}
	return e, nil
}

func (s *EventService) Create(ctx context.Context, actor string, in EventInput) (*gormModels.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e := &gormModels.Event{
		Kind:          in.Kind,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Category:      in.Category,
		Date:          in.Date.UTC(),
		ImageURL:      in.ImageURL,
		IsPublished:   in.IsPublished,
		CreatedBy:     actor,
		Registrations: []gormModels.EventRegistration{},
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditEventCreate, e.ID, "%s %q", e.Kind, e.Title)
	return e, nil
}

// Update replaces the editable fields; registrations are kept.
func (s *EventService) Update(ctx context.Context, actor, id string, in EventInput) (*gormModels.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	e.Kind = in.Kind
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Category = in.Category
	e.Date = in.Date.UTC()
	e.ImageURL = in.ImageURL
	e.IsPublished = in.IsPublished

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditEventUpdate, e.ID, "published=%t", e.IsPublished)
	return s.Get(ctx, id, true)
}

func (s *EventService) Delete(ctx context.Context, actor, id string) error {
	if _, err := s.Get(ctx, id, true); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	audit(ctx, s.audit, actor, constants.AuditEventDelete, id, "")
	return nil
}

// Register adds the member to a published event. A second registration of
// the same member fails with ErrAlreadyRegistered.
func (s *EventService) Register(ctx context.Context, id string, who Registrant, notes string) (*gormModels.EventRegistration, error) {
	login := gormModels.NormalizeLogin(who.TwitchLogin)
	if login == "" {
		return nil, common.Validationf("a linked Twitch login is required to register")
	}
	e, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Registrations {
		if r.MemberLogin == login {
			return nil, fmt.Errorf("%s on event %s: %w", login, id, common.ErrAlreadyRegistered)
		}
	}

	reg := &gormModels.EventRegistration{
		EventID:      e.ID,
		MemberLogin:  login,
		DiscordID:    who.DiscordID,
		DisplayName:  who.DisplayName,
		Notes:        strings.TrimSpace(notes),
		RegisteredAt: s.now().UTC(),
	}
	if err := s.store.AddRegistration(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%s on event %s: %w", login, id, common.ErrAlreadyRegistered)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EventRegistrations.Inc()
	}
	return reg, nil
}

func (s *EventService) Unregister(ctx context.Context, id, login string) error {
	login = gormModels.NormalizeLogin(login)
	e, err := s.Get(ctx, id, true)
	if err != nil {
		return err
	}
	for _, r := range e.Registrations {
		if r.MemberLogin == login {
			return s.store.RemoveRegistration(ctx, id, login)
		}
	}
	return fmt.Errorf("%s on event %s: %w", login, id, common.ErrNotFound)
}

// Registrations lists who registered, for staff.
func (s *EventService) Registrations(ctx context.Context, id string) ([]gormModels.EventRegistration, error) {
	e, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return e.Registrations, nil
}
