package services

import (
	"context"
	"fmt"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
	gormModels "tenf/portal/internal/models/gorm"
)

type SafeModeStore interface {
	Get(ctx context.Context) (*gormModels.SafeModeState, error)
	Set(ctx context.Context, enabled bool, actor string) (*gormModels.SafeModeState, error)
}

// SafeModeService reads the persisted flag on every check, so every
// instance sees a toggle immediately and the state survives restarts.
type SafeModeService struct {
	store   SafeModeStore
	audit   AuditRecorder
	metrics *metrics.MetricsRegistry
}

func NewSafeModeService(store SafeModeStore, rec AuditRecorder, m *metrics.MetricsRegistry) *SafeModeService {
	return &SafeModeService{store: store, audit: rec, metrics: m}
}

func (s *SafeModeService) State(ctx context.Context) (*gormModels.SafeModeState, error) {
	return s.store.Get(ctx)
}

func (s *SafeModeService) IsEnabled(ctx context.Context) (bool, error) {
	st, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.SafeModeEnabled.Set(boolGauge(st.Enabled))
	}
	return st.Enabled, nil
}

// CheckWrite refuses writes from anyone but a founder while safe mode is on.
func (s *SafeModeService) CheckWrite(ctx context.Context, p *auth.Principal) error {
	enabled, err := s.IsEnabled(ctx)
	if err != nil {
		return err
	}
	if enabled && (p == nil || !p.IsFounder()) {
		return common.ErrSafeMode
	}
	return nil
}

func (s *SafeModeService) Toggle(ctx context.Context, p *auth.Principal, enabled bool) (*gormModels.SafeModeState, error) {
	if p == nil {
		return nil, common.ErrUnauthenticated
	}
	if !p.IsFounder() {
		return nil, fmt.Errorf("%w: only founders toggle safe mode", common.ErrForbidden)
	}
	st, err := s.store.Set(ctx, enabled, p.ActorID())
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SafeModeEnabled.Set(boolGauge(enabled))
	}
	logging.Warn("Safe mode toggled", "enabled", enabled, "actor", p.ActorID())
	audit(ctx, s.audit, p.ActorID(), constants.AuditSafeMode, "safe_mode", "enabled=%t", enabled)
	return st, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
