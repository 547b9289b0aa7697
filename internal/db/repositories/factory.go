package repositories

import (
	"tenf/portal/internal/blob"
	"tenf/portal/internal/config"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"

	"gorm.io/gorm"
)

// EntityStores holds the authoritative store of every dual-stored entity.
type EntityStores struct {
	Members     MemberStore
	Events      EventStore
	Evaluations EvaluationStore
	Spotlights  SpotlightStore
}

// NewEntityStores picks the relational or blob implementation per entity
// according to storage.backends.
func NewEntityStores(cfg config.StorageConfig, db *gorm.DB, bs blob.Store) *EntityStores {
	stores := &EntityStores{
		Members:     NewMemberRepositoryGORM(db),
		Events:      NewEventRepositoryGORM(db),
		Evaluations: NewEvaluationRepositoryGORM(db),
		Spotlights:  NewSpotlightRepositoryGORM(db),
	}

	for _, entity := range constants.DualStoreEntities {
		if cfg.Backend(entity) != constants.BackendBlob {
			continue
		}
		switch entity {
		case constants.EntityMembers:
			stores.Members = NewMemberBlobRepository(bs)
		case constants.EntityEvents:
			stores.Events = NewEventBlobRepository(bs)
		case constants.EntityEvaluations:
			stores.Evaluations = NewEvaluationBlobRepository(bs)
		case constants.EntitySpotlights:
			stores.Spotlights = NewSpotlightBlobRepository(bs)
		}
		logging.Info("Entity served from blob store", "entity", entity, "blob_backend", bs.Backend())
	}
	return stores
}
