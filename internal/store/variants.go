package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DartonStaker/appapost/internal/ai"
	"github.com/DartonStaker/appapost/internal/policy"
)

// ErrVariantNotFound means no stored variant matched the lookup.
var ErrVariantNotFound = errors.New("variant not found")

// StoredVariant is a persisted caption variant for a post.
type StoredVariant struct {
	ID       string
	PostID   string
	Platform policy.Platform
	Variant  ai.Variant
	Selected bool
}

// VariantStore persists generated variants and their selection state.
// Variant payloads go in as JSONB so the caption schema can evolve
// without migrations.
type VariantStore struct {
	db *sql.DB
}

func NewVariantStore(db *sql.DB) *VariantStore {
	return &VariantStore{db: db}
}

// Save replaces the stored variants for (post, platform) with the
// given set, marking at most one as selected.
func (s *VariantStore) Save(ctx context.Context, postID string, platform policy.Platform, variants []ai.Variant, selectedIdx int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_variants WHERE post_id = $1 AND platform = $2`,
		postID, string(platform)); err != nil {
		return fmt.Errorf("clear variants: %w", err)
	}

	for i, v := range variants {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal variant: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_variants (id, post_id, platform, variant, selected)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), postID, string(platform), payload, i == selectedIdx); err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
	}
	return tx.Commit()
}

// Get returns all stored variants for a post keyed by platform.
func (s *VariantStore) Get(ctx context.Context, postID string) (map[policy.Platform][]StoredVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, platform, variant, selected
		FROM post_variants
		WHERE post_id = $1
		ORDER BY platform, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	out := make(map[policy.Platform][]StoredVariant)
	for rows.Next() {
		var sv StoredVariant
		var platformName string
		var payload []byte
		if err := rows.Scan(&sv.ID, &sv.PostID, &platformName, &payload, &sv.Selected); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		p, ok := policy.Normalize(platformName)
		if !ok {
			continue
		}
		sv.Platform = p
		if err := json.Unmarshal(payload, &sv.Variant); err != nil {
			return nil, fmt.Errorf("unmarshal variant: %w", err)
		}
		out[p] = append(out[p], sv)
	}
	return out, rows.Err()
}

// GetSelected returns the selected variant for (post, platform).
func (s *VariantStore) GetSelected(ctx context.Context, postID string, platform policy.Platform) (*StoredVariant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, platform, variant, selected
		FROM post_variants
		WHERE post_id = $1 AND platform = $2 AND selected = true
		LIMIT 1`, postID, string(platform))

	var sv StoredVariant
	var platformName string
	var payload []byte
	err := row.Scan(&sv.ID, &sv.PostID, &platformName, &payload, &sv.Selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query selected variant: %w", err)
	}
	if p, ok := policy.Normalize(platformName); ok {
		sv.Platform = p
	}
	if err := json.Unmarshal(payload, &sv.Variant); err != nil {
		return nil, fmt.Errorf("unmarshal variant: %w", err)
	}
	return &sv, nil
}

// GetByID returns one stored variant.
func (s *VariantStore) GetByID(ctx context.Context, variantID string) (*StoredVariant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, platform, variant, selected
		FROM post_variants
		WHERE id = $1`, variantID)

	var sv StoredVariant
	var platformName string
	var payload []byte
	err := row.Scan(&sv.ID, &sv.PostID, &platformName, &payload, &sv.Selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	if p, ok := policy.Normalize(platformName); ok {
		sv.Platform = p
	}
	if err := json.Unmarshal(payload, &sv.Variant); err != nil {
		return nil, fmt.Errorf("unmarshal variant: %w", err)
	}
	return &sv, nil
}
