package universe

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/shared/database"
	apperrors "cosmos-server/internal/shared/errors"
)

// Repository persists universe documents. The full universe (wire shape,
// including the `_scaleFactor` field) is stored as a JSONB document with a
// version column for optimistic concurrency control.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing universe repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new universe document at version 1.
func (r *Repository) Create(ctx context.Context, universe *cosmos.Universe) error {
	doc, err := json.Marshal(universe)
	if err != nil {
		return apperrors.WrapInternal("failed to encode universe", err)
	}

	query := `
		INSERT INTO universes (id, owner_id, version, doc, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $4, $4)`

	if _, err := r.db.ExecContext(ctx, query, universe.ID, universe.OwnerID, doc, universe.CreatedAt); err != nil {
		r.logger.Error("Failed to create universe", "universe_id", universe.ID, "error", err)
		return apperrors.WrapPersistence("failed to create universe", err)
	}

	return nil
}

// GetOwned loads a universe document for an owner. A missing row and an
// ownership mismatch are indistinguishable to the caller: both are
// not-found.
func (r *Repository) GetOwned(ctx context.Context, id, ownerID string) (*cosmos.Universe, int64, error) {
	query := `
		SELECT doc, version
		FROM universes
		WHERE id = $1 AND owner_id = $2`

	var doc []byte
	var version int64
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&doc, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, apperrors.NotFoundf("universe %s not found", id)
		}
		r.logger.Error("Failed to get universe", "universe_id", id, "error", err)
		return nil, 0, apperrors.WrapPersistence("failed to get universe", err)
	}

	var universe cosmos.Universe
	if err := json.Unmarshal(doc, &universe); err != nil {
		return nil, 0, apperrors.WrapInternal("failed to decode universe document", err)
	}

	return &universe, version, nil
}

// ListByOwner loads all of an owner's universe documents, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*cosmos.Universe, error) {
	query := `
		SELECT doc
		FROM universes
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list universes", "owner_id", ownerID, "error", err)
		return nil, apperrors.WrapPersistence("failed to list universes", err)
	}
	defer rows.Close()

	var universes []*cosmos.Universe
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apperrors.WrapPersistence("failed to scan universe", err)
		}

		var universe cosmos.Universe
		if err := json.Unmarshal(doc, &universe); err != nil {
			return nil, apperrors.WrapInternal("failed to decode universe document", err)
		}
		universes = append(universes, &universe)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapPersistence("failed to iterate universes", err)
	}

	return universes, nil
}

// Update writes the document back, guarded by the version read at load
// time. A version mismatch surfaces as a conflict so the caller can retry
// the whole load-simulate-persist cycle; no partial write occurs.
func (r *Repository) Update(ctx context.Context, universe *cosmos.Universe, expectedVersion int64) error {
	doc, err := json.Marshal(universe)
	if err != nil {
		return apperrors.WrapInternal("failed to encode universe", err)
	}

	query := `
		UPDATE universes
		SET doc = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query, universe.ID, expectedVersion, doc)
	if err != nil {
		r.logger.Error("Failed to update universe", "universe_id", universe.ID, "error", err)
		return apperrors.WrapPersistence("failed to update universe", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.WrapPersistence("failed to confirm universe update", err)
	}
	if affected == 0 {
		return apperrors.Conflictf("universe %s was modified concurrently", universe.ID)
	}

	return nil
}

// Delete removes an owner's universe.
func (r *Repository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM universes WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete universe", "universe_id", id, "error", err)
		return apperrors.WrapPersistence("failed to delete universe", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.WrapPersistence("failed to confirm universe delete", err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("universe %s not found", id)
	}

	return nil
}
