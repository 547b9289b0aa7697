package services

import (
	"context"
	"fmt"
	"time"

	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	gormModels "tenf/portal/internal/models/gorm"
)

// MaxCriterionScore bounds each spotlight criterion.
const MaxCriterionScore = 5

// SpotlightService runs the single live spotlight session and folds
// completed sessions into the month's evaluations.
type SpotlightService struct {
	store       repositories.SpotlightStore
	members     repositories.MemberStore
	evaluations *EvaluationService
	audit       AuditRecorder
	now         func() time.Time
}

func NewSpotlightService(store repositories.SpotlightStore, members repositories.MemberStore, evaluations *EvaluationService, rec AuditRecorder) *SpotlightService {
	return &SpotlightService{store: store, members: members, evaluations: evaluations, audit: rec, now: time.Now}
}

func (s *SpotlightService) Get(ctx context.Context, id string) (*gormModels.Spotlight, error) {
	sp, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, fmt.Errorf("spotlight %s: %w", id, common.ErrNotFound)
	}
	return sp, nil
}

func (s *SpotlightService) Active(ctx context.Context) (*gormModels.Spotlight, error) {
	sp, err := s.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, fmt.Errorf("active spotlight: %w", common.ErrNotFound)
	}
	return sp, nil
}

func (s *SpotlightService) ListMonth(ctx context.Context, month string) ([]gormModels.Spotlight, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	return s.store.FindByMonth(ctx, month)
}

// Start opens a session. Only one spotlight may be active at a time.
func (s *SpotlightService) Start(ctx context.Context, actor, streamer, moderator string) (*gormModels.Spotlight, error) {
	streamer = gormModels.NormalizeLogin(streamer)
	moderator = gormModels.NormalizeLogin(moderator)
	if streamer == "" {
		return nil, common.Validationf("streamer login is required")
	}
	if moderator == "" {
		moderator = actor
	}
	active, err := s.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("spotlight for %s already running: %w", active.StreamerLogin, common.ErrConflict)
	}

	now := s.now().UTC()
	if err := s.evaluations.ensureMonthOpen(ctx, MonthOf(now), false); err != nil {
		return nil, err
	}
	sp := &gormModels.Spotlight{
		StreamerLogin:  streamer,
		ModeratorLogin: moderator,
		Status:         gormModels.SpotlightActive,
		Month:          MonthOf(now),
		StartedAt:      now,
		Presence:       []string{},
		CriteriaScores: map[string]int{},
	}
	if err := s.store.Create(ctx, sp); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditSpotlight, sp.ID, "start streamer=%s", streamer)
	return sp, nil
}

func (s *SpotlightService) activeByID(ctx context.Context, id string) (*gormModels.Spotlight, error) {
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp.Status != gormModels.SpotlightActive {
		return nil, fmt.Errorf("spotlight %s is %s: %w", id, sp.Status, common.ErrConflict)
	}
	return sp, nil
}

func (s *SpotlightService) SetPresence(ctx context.Context, id, login string, present bool) (*gormModels.Spotlight, error) {
	login = gormModels.NormalizeLogin(login)
	if login == "" {
		return nil, common.Validationf("member login is required")
	}
	sp, err := s.activeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sp.SetPresence(login, present)
	if err := s.store.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *SpotlightService) SetCriteria(ctx context.Context, actor, id string, scores map[string]int) (*gormModels.Spotlight, error) {
	for name, v := range scores {
		if name == "" || v < 0 || v > MaxCriterionScore {
			return nil, common.Validationf("criterion %q must be scored 0 to %d", name, MaxCriterionScore)
		}
	}
	sp, err := s.activeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp.CriteriaScores == nil {
		sp.CriteriaScores = map[string]int{}
	}
	for name, v := range scores {
		sp.CriteriaScores[name] = v
	}
	if err := s.store.Update(ctx, sp); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditSpotlight, sp.ID, "criteria=%d", len(scores))
	return sp, nil
}

// Complete ends the session and refreshes the spotlight presence of the
// month's evaluations.
func (s *SpotlightService) Complete(ctx context.Context, actor, id, notes string) (*gormModels.Spotlight, error) {
	sp, err := s.end(ctx, actor, id, gormModels.SpotlightCompleted, notes)
	if err != nil {
		return nil, err
	}
	if err := s.FinalizeMonth(ctx, sp.Month); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *SpotlightService) Cancel(ctx context.Context, actor, id, notes string) (*gormModels.Spotlight, error) {
	return s.end(ctx, actor, id, gormModels.SpotlightCancelled, notes)
}

func (s *SpotlightService) end(ctx context.Context, actor, id, status, notes string) (*gormModels.Spotlight, error) {
	sp, err := s.activeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.evaluations.ensureMonthOpen(ctx, sp.Month, false); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sp.Status = status
	sp.EndedAt = &now
	if notes != "" {
		sp.Notes = notes
	}
	if err := s.store.Update(ctx, sp); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditSpotlight, sp.ID, "%s presence=%d", status, len(sp.Presence))
	return sp, nil
}

// FinalizeMonth writes present/total counts of completed spotlights into
// the evaluation of every active member and every member seen present.
func (s *SpotlightService) FinalizeMonth(ctx context.Context, month string) error {
	spotlights, err := s.ListMonth(ctx, month)
	if err != nil {
		return err
	}
	total := 0
	present := map[string]int{}
	for _, sp := range spotlights {
		if sp.Status != gormModels.SpotlightCompleted {
			continue
		}
		total++
		for _, login := range sp.Presence {
			present[login]++
		}
	}

	members, err := s.members.FindAll(ctx, 0, 0)
	if err != nil {
		return err
	}
	for _, m := range members {
		if _, ok := present[m.TwitchLogin]; !ok && m.IsActive {
			present[m.TwitchLogin] = 0
		}
	}
	for login, n := range present {
		if _, err := s.evaluations.SetSpotlightStats(ctx, login, month, n, total, false); err != nil {
			return err
		}
	}
	return nil
}
