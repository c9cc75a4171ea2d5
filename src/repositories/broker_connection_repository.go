package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BrokerConnectionRepository interface {
	GetByUserID(ctx context.Context, userID, brokerID string) (*models.BrokerConnection, error)
	Upsert(ctx context.Context, conn *models.BrokerConnection) error
	SetActive(ctx context.Context, userID, brokerID string, active bool) error
	UpdateMetadata(ctx context.Context, userID, brokerID string, metadata map[string]interface{}) error
	GetActive(ctx context.Context, brokerID string) ([]models.BrokerConnection, error)
}

type brokerConnectionRepo struct {
	db *pgxpool.Pool
}

func NewBrokerConnectionRepository(db *pgxpool.Pool) BrokerConnectionRepository {
	return &brokerConnectionRepo{db: db}
}

// GetByUserID returns the connection row for (userID, brokerID), or nil
// when none exists.
func (r *brokerConnectionRepo) GetByUserID(ctx context.Context, userID, brokerID string) (*models.BrokerConnection, error) {
	var conn models.BrokerConnection
	var metadata []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, broker_id, secret, active, metadata, created_at, updated_at
		 FROM broker_connections
		 WHERE user_id = $1 AND broker_id = $2`,
		userID, brokerID,
	).Scan(&conn.ID, &conn.UserID, &conn.BrokerID, &conn.Secret, &conn.Active, &metadata, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &conn.Metadata); err != nil {
			return nil, err
		}
	}
	return &conn, nil
}

// Upsert inserts or replaces the row for (user_id, broker_id). The unique
// constraint makes concurrent writers converge on one row; last writer
// wins on the secret and metadata.
func (r *brokerConnectionRepo) Upsert(ctx context.Context, conn *models.BrokerConnection) error {
	metadata, err := json.Marshal(conn.Metadata)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO broker_connections (user_id, broker_id, secret, active, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, broker_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			active = EXCLUDED.active,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		 RETURNING id`,
		conn.UserID, conn.BrokerID, conn.Secret, conn.Active, metadata,
	).Scan(&conn.ID)
}

// SetActive flips the soft-delete flag; rows are never hard-deleted.
func (r *brokerConnectionRepo) SetActive(ctx context.Context, userID, brokerID string, active bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE broker_connections SET active = $3, updated_at = NOW()
		 WHERE user_id = $1 AND broker_id = $2`,
		userID, brokerID, active)
	return err
}

// UpdateMetadata merges the given keys into the stored metadata mapping.
func (r *brokerConnectionRepo) UpdateMetadata(ctx context.Context, userID, brokerID string, metadata map[string]interface{}) error {
	patch, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`UPDATE broker_connections
		 SET metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb, updated_at = NOW()
		 WHERE user_id = $1 AND broker_id = $2`,
		userID, brokerID, patch)
	return err
}

// GetActive returns every active connection for one broker, used by the
// worker refresh sweep.
func (r *brokerConnectionRepo) GetActive(ctx context.Context, brokerID string) ([]models.BrokerConnection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, broker_id, secret, active, metadata, created_at, updated_at
		 FROM broker_connections
		 WHERE broker_id = $1 AND active = TRUE`,
		brokerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.BrokerConnection
	for rows.Next() {
		var conn models.BrokerConnection
		var metadata []byte
		if err := rows.Scan(&conn.ID, &conn.UserID, &conn.BrokerID, &conn.Secret, &conn.Active, &metadata, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &conn.Metadata); err != nil {
				return nil, err
			}
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}
