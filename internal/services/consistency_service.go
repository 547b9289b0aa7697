package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tenf/portal/internal/blob"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/db/repositories"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
)

// RelationalKeys lists the blob-style keys of the relational rows of an entity.
type RelationalKeys interface {
	Keys(ctx context.Context, entity string) ([]string, error)
}

type EntitySyncReport struct {
	Entity              string   `json:"entity"`
	BlobCount           int      `json:"blobCount"`
	RelationalCount     int      `json:"relationalCount"`
	MissingInRelational []string `json:"missingInRelational"`
}

type SyncCheckReport struct {
	CheckedAt time.Time          `json:"checkedAt"`
	Entities  []EntitySyncReport `json:"entities"`
}

// Diverged reports whether any entity has blob keys missing in Postgres.
func (r *SyncCheckReport) Diverged() bool {
	for _, e := range r.Entities {
		if len(e.MissingInRelational) > 0 {
			return true
		}
	}
	return false
}

type ImportResult struct {
	Entity   string   `json:"entity"`
	Imported int      `json:"imported"`
	Failed   []string `json:"failed"`
}

// ConsistencyService compares the blob and relational copies of the
// dual-stored entities and re-imports what the relational side lacks.
type ConsistencyService struct {
	keys       RelationalKeys
	blob       blob.Store
	relational *repositories.EntityStores
	blobStores *repositories.EntityStores
	audit      AuditRecorder
	metrics    *metrics.MetricsRegistry
}

// NewConsistencyService takes the relational stores explicitly: the check
// always compares both sides whatever storage.backends selects.
func NewConsistencyService(keys RelationalKeys, bs blob.Store, relational *repositories.EntityStores, rec AuditRecorder, m *metrics.MetricsRegistry) *ConsistencyService {
	return &ConsistencyService{
		keys:       keys,
		blob:       bs,
		relational: relational,
		blobStores: &repositories.EntityStores{
			Members:     repositories.NewMemberBlobRepository(bs),
			Events:      repositories.NewEventBlobRepository(bs),
			Evaluations: repositories.NewEvaluationBlobRepository(bs),
			Spotlights:  repositories.NewSpotlightBlobRepository(bs),
		},
		audit:   rec,
		metrics: m,
	}
}

func validEntity(entity string) bool {
	for _, e := range constants.DualStoreEntities {
		if e == entity {
			return true
		}
	}
	return false
}

// Check loads both key sets of every requested entity concurrently. An
// empty list checks all dual-stored entities.
func (s *ConsistencyService) Check(ctx context.Context, entities ...string) (*SyncCheckReport, error) {
	if len(entities) == 0 {
		entities = constants.DualStoreEntities
	}
	for _, e := range entities {
		if !validEntity(e) {
			return nil, common.Validationf("unknown entity %q", e)
		}
	}
	start := time.Now()

	blobKeys := make([][]string, len(entities))
	relKeys := make([][]string, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			keys, err := s.blob.Keys(gctx, entity)
			if err != nil {
				return fmt.Errorf("failed to list blob %s: %w", entity, err)
			}
			blobKeys[i] = keys
			return nil
		})
		g.Go(func() error {
			keys, err := s.keys.Keys(gctx, entity)
			if err != nil {
				return err
			}
			relKeys[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &SyncCheckReport{CheckedAt: time.Now().UTC(), Entities: make([]EntitySyncReport, len(entities))}
	for i, entity := range entities {
		r := diffKeys(entity, blobKeys[i], relKeys[i])
		report.Entities[i] = r
		if s.metrics != nil {
			s.metrics.StoreDivergence.WithLabelValues(entity).Set(float64(len(r.MissingInRelational)))
		}
	}
	if s.metrics != nil {
		s.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	}
	return report, nil
}

func diffKeys(entity string, blobKeys, relKeys []string) EntitySyncReport {
	rel := make(map[string]struct{}, len(relKeys))
	for _, k := range relKeys {
		rel[k] = struct{}{}
	}
	missing := []string{}
	for _, k := range blobKeys {
		if _, ok := rel[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return EntitySyncReport{
		Entity:              entity,
		BlobCount:           len(blobKeys),
		RelationalCount:     len(relKeys),
		MissingInRelational: missing,
	}
}

// ImportMissing copies the blob records the relational store lacks into
// it. Records that fail to load or write are reported, not fatal.
func (s *ConsistencyService) ImportMissing(ctx context.Context, actor, entity string) (*ImportResult, error) {
	report, err := s.Check(ctx, entity)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Entity: entity, Failed: []string{}}
	for _, key := range report.Entities[0].MissingInRelational {
		if err := s.importOne(ctx, entity, key); err != nil {
			logging.Warn("Failed to import blob record", "entity", entity, "key", key, "error", err.Error())
			res.Failed = append(res.Failed, key)
			continue
		}
		res.Imported++
	}

	logging.Info("Blob import finished", "entity", entity, "imported", res.Imported, "failed", len(res.Failed))
	audit(ctx, s.audit, actor, constants.AuditSyncImport, entity, "imported=%d failed=%d", res.Imported, len(res.Failed))
	return res, nil
}

func (s *ConsistencyService) importOne(ctx context.Context, entity, key string) error {
	switch entity {
	case constants.EntityMembers:
		m, err := s.blobStores.Members.FindByLogin(ctx, key)
		if err != nil || m == nil {
			return missingBlob(key, err)
		}
		return s.relational.Members.Upsert(ctx, m)
	case constants.EntityEvents:
		e, err := s.blobStores.Events.FindByID(ctx, key)
		if err != nil || e == nil {
			return missingBlob(key, err)
		}
		return s.relational.Events.Upsert(ctx, e)
	case constants.EntityEvaluations:
		login, month, ok := strings.Cut(key, ":")
		if !ok {
			return fmt.Errorf("malformed evaluation key %q", key)
		}
		e, err := s.blobStores.Evaluations.Find(ctx, login, month)
		if err != nil || e == nil {
			return missingBlob(key, err)
		}
		return s.relational.Evaluations.Upsert(ctx, e)
	case constants.EntitySpotlights:
		sp, err := s.blobStores.Spotlights.FindByID(ctx, key)
		if err != nil || sp == nil {
			return missingBlob(key, err)
		}
		return s.relational.Spotlights.Upsert(ctx, sp)
	}
	return common.Validationf("unknown entity %q", entity)
}

func missingBlob(key string, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("blob record %s: %w", key, common.ErrNotFound)
}
