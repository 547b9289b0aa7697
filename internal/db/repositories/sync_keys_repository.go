package repositories

import (
	"context"
	"fmt"

	"tenf/portal/internal/constants"

	"github.com/jmoiron/sqlx"
)

// keyQueries select the blob-store key of every row of a dual-stored entity.
var keyQueries = map[string]string{
	constants.EntityMembers:     `SELECT twitch_login FROM members`,
	constants.EntityEvents:      `SELECT id FROM events`,
	constants.EntityEvaluations: `SELECT member_login || ':' || month FROM evaluations`,
	constants.EntitySpotlights:  `SELECT id FROM spotlights`,
}

// SyncKeysRepository reads relational key sets for the consistency check.
type SyncKeysRepository struct {
	db *sqlx.DB
}

func NewSyncKeysRepository(db *sqlx.DB) *SyncKeysRepository {
	return &SyncKeysRepository{db: db}
}

func (r *SyncKeysRepository) Keys(ctx context.Context, entity string) ([]string, error) {
	query, ok := keyQueries[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("failed to load %s keys: %w", entity, err)
	}
	return keys, nil
}
