package repositories

import (
	"context"
	"errors"
	"time"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SyncLogRepository interface {
	Create(ctx context.Context, log *models.SyncLog) error
	GetLastSync(ctx context.Context, userID string) (*models.SyncLog, error)
}

type syncLogRepo struct {
	DB *pgxpool.Pool
}

func NewSyncLogRepository(db *pgxpool.Pool) SyncLogRepository {
	return &syncLogRepo{DB: db}
}

func (r *syncLogRepo) Create(ctx context.Context, log *models.SyncLog) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO sync_logs (user_id, accounts_seen, assets_created, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		log.UserID, log.AccountsSeen, log.AssetsCreated, log.Status,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *syncLogRepo) GetLastSync(ctx context.Context, userID string) (*models.SyncLog, error) {
	var log models.SyncLog
	var createdAt time.Time
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, accounts_seen, assets_created, status, created_at
		FROM sync_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, userID,
	).Scan(&log.ID, &log.UserID, &log.AccountsSeen, &log.AssetsCreated, &log.Status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	log.CreatedAt = createdAt
	return &log, nil
}
