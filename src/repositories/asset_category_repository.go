package repositories

import (
	"context"
	"errors"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AssetCategoryRepository interface {
	GetAll(ctx context.Context) ([]models.AssetCategory, error)
	GetBySlug(ctx context.Context, slug string) (*models.AssetCategory, error)
	Create(ctx context.Context, ac *models.AssetCategory) error
}

type assetCategoryRepo struct {
	db *pgxpool.Pool
}

func NewAssetCategoryRepository(db *pgxpool.Pool) AssetCategoryRepository {
	return &assetCategoryRepo{db: db}
}

func (r *assetCategoryRepo) GetAll(ctx context.Context) ([]models.AssetCategory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slug, name, description FROM asset_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.AssetCategory
	for rows.Next() {
		var ac models.AssetCategory
		if err := rows.Scan(&ac.ID, &ac.Slug, &ac.Name, &ac.Description); err != nil {
			return nil, err
		}
		categories = append(categories, ac)
	}

	return categories, rows.Err()
}

// GetBySlug returns nil when no category matches.
func (r *assetCategoryRepo) GetBySlug(ctx context.Context, slug string) (*models.AssetCategory, error) {
	var ac models.AssetCategory
	err := r.db.QueryRow(ctx,
		`SELECT id, slug, name, description FROM asset_categories WHERE slug = $1`, slug,
	).Scan(&ac.ID, &ac.Slug, &ac.Name, &ac.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ac, nil
}

// Create upserts a category by slug. The DO UPDATE keeps RETURNING id
// populated on conflict, where DO NOTHING would yield no row at all.
func (r *assetCategoryRepo) Create(ctx context.Context, ac *models.AssetCategory) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO asset_categories (slug, name, description)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description
		 RETURNING id`,
		ac.Slug, ac.Name, ac.Description,
	).Scan(&ac.ID)
}
