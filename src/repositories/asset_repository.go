package repositories

import (
	"context"
	"encoding/json"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AssetRepository interface {
	GetByUserID(ctx context.Context, userID string) ([]models.Asset, error)
	Create(ctx context.Context, asset *models.Asset, tx pgx.Tx) error
}

type assetRepo struct {
	db *pgxpool.Pool
}

func NewAssetRepository(db *pgxpool.Pool) AssetRepository {
	return &assetRepo{db: db}
}

func (r *assetRepo) GetByUserID(ctx context.Context, userID string) ([]models.Asset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, value, category_id, is_liability, metadata, created_at
		 FROM assets
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var asset models.Asset
		var metadata []byte
		if err := rows.Scan(&asset.ID, &asset.UserID, &asset.Name, &asset.Value, &asset.CategoryID, &asset.IsLiability, &metadata, &asset.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &asset.Metadata); err != nil {
				return nil, err
			}
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// Create inserts a new asset row. There is deliberately no conflict
// target: every sync run appends its own rows.
func (r *assetRepo) Create(ctx context.Context, asset *models.Asset, tx pgx.Tx) error {
	metadata, err := json.Marshal(asset.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assets (user_id, name, value, category_id, is_liability, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if tx != nil {
		return tx.QueryRow(ctx, query,
			asset.UserID, asset.Name, asset.Value, asset.CategoryID, asset.IsLiability, metadata,
		).Scan(&asset.ID)
	}

	return r.db.QueryRow(ctx, query,
		asset.UserID, asset.Name, asset.Value, asset.CategoryID, asset.IsLiability, metadata,
	).Scan(&asset.ID)
}
