package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/models/entities"
	gormModels "tenf/portal/internal/models/gorm"
)

// MonthCloser is satisfied by *EvaluationService.
type MonthCloser interface {
	IsMonthClosed(ctx context.Context, month string) (bool, error)
}

// VipService keeps the "VIP of the month" list in the blob store.
type VipService struct {
	months  *blob.Collection[entities.VipMonth]
	members repositories.MemberStore
	closer  MonthCloser
	audit   AuditRecorder
	now     func() time.Time
}

func NewVipService(store blob.Store, members repositories.MemberStore, closer MonthCloser, rec AuditRecorder) *VipService {
	return &VipService{
		months:  blob.NewCollection[entities.VipMonth](store, constants.StoreVipMonth),
		members: members,
		closer:  closer,
		audit:   rec,
		now:     time.Now,
	}
}

// Get returns the VIP list of month ("" for the current month). A month
// without a list is empty.
func (s *VipService) Get(ctx context.Context, month string) (*entities.VipMonth, error) {
	if month == "" {
		month = MonthOf(s.now())
	}
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	vm, ok := s.months.Get(ctx, month)
	if !ok {
		return &entities.VipMonth{Month: month, Logins: []string{}}, nil
	}
	return vm, nil
}

// Set replaces the list of month. Every login must be a known member. A
// closed month is only written when force is set.
func (s *VipService) Set(ctx context.Context, actor, month string, logins []string, force bool) (*entities.VipMonth, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	if !force && s.closer != nil {
		closed, err := s.closer.IsMonthClosed(ctx, month)
		if err != nil {
			return nil, err
		}
		if closed {
			return nil, fmt.Errorf("%s: %w", month, common.ErrMonthClosed)
		}
	}
	seen := map[string]struct{}{}
	clean := []string{}
	for _, l := range logins {
		login := gormModels.NormalizeLogin(l)
		if login == "" {
			continue
		}
		if _, dup := seen[login]; dup {
			continue
		}
		m, err := s.members.FindByLogin(ctx, login)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("%w: unknown member %s", common.ErrValidation, login)
		}
		seen[login] = struct{}{}
		clean = append(clean, login)
	}
	sort.Strings(clean)

	vm := &entities.VipMonth{Month: month, Logins: clean, UpdatedBy: actor, UpdatedAt: s.now().UTC()}
	if err := s.months.Put(ctx, month, vm); err != nil {
		return nil, err
	}
	audit(ctx, s.audit, actor, constants.AuditVipMonth, month, "logins=%d", len(clean))
	return vm, nil
}
