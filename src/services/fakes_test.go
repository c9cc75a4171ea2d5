package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"server/src/models"
	"server/src/schemas"
)

// In-memory repository fakes backing the service tests.

type memConnectionRepo struct {
	rows map[string]*models.BrokerConnection
	// failReads simulates a store outage on read.
	failReads bool
}

func newMemConnectionRepo() *memConnectionRepo {
	return &memConnectionRepo{rows: map[string]*models.BrokerConnection{}}
}

func connKey(userID, brokerID string) string {
	return userID + "|" + brokerID
}

func (r *memConnectionRepo) GetByUserID(_ context.Context, userID, brokerID string) (*models.BrokerConnection, error) {
	if r.failReads {
		return nil, fmt.Errorf("store unavailable")
	}
	row, ok := r.rows[connKey(userID, brokerID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	copied.Metadata = map[string]interface{}{}
	for k, v := range row.Metadata {
		copied.Metadata[k] = v
	}
	return &copied, nil
}

func (r *memConnectionRepo) Upsert(_ context.Context, conn *models.BrokerConnection) error {
	key := connKey(conn.UserID, conn.BrokerID)
	stored := *conn
	if existing, ok := r.rows[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = len(r.rows) + 1
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	r.rows[key] = &stored
	conn.ID = stored.ID
	return nil
}

func (r *memConnectionRepo) SetActive(_ context.Context, userID, brokerID string, active bool) error {
	if row, ok := r.rows[connKey(userID, brokerID)]; ok {
		row.Active = active
	}
	return nil
}

func (r *memConnectionRepo) UpdateMetadata(_ context.Context, userID, brokerID string, metadata map[string]interface{}) error {
	row, ok := r.rows[connKey(userID, brokerID)]
	if !ok {
		return nil
	}
	if row.Metadata == nil {
		row.Metadata = map[string]interface{}{}
	}
	for k, v := range metadata {
		row.Metadata[k] = v
	}
	return nil
}

func (r *memConnectionRepo) GetActive(_ context.Context, brokerID string) ([]models.BrokerConnection, error) {
	var conns []models.BrokerConnection
	for _, row := range r.rows {
		if row.BrokerID == brokerID && row.Active {
			conns = append(conns, *row)
		}
	}
	return conns, nil
}

type memAssetRepo struct {
	rows     []models.Asset
	failNext bool
}

func (r *memAssetRepo) GetByUserID(_ context.Context, userID string) ([]models.Asset, error) {
	var assets []models.Asset
	for _, row := range r.rows {
		if row.UserID == userID {
			assets = append(assets, row)
		}
	}
	return assets, nil
}

func (r *memAssetRepo) Create(_ context.Context, asset *models.Asset, _ pgx.Tx) error {
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("insert failed")
	}
	asset.ID = len(r.rows) + 1
	asset.CreatedAt = time.Now()
	r.rows = append(r.rows, *asset)
	return nil
}

type memCategoryRepo struct {
	categories []models.AssetCategory
	failReads  bool
}

func newMemCategoryRepo(slugs ...string) *memCategoryRepo {
	repo := &memCategoryRepo{}
	for i, slug := range slugs {
		repo.categories = append(repo.categories, models.AssetCategory{
			ID:   i + 1,
			Slug: slug,
			Name: slug,
		})
	}
	return repo
}

func (r *memCategoryRepo) GetAll(_ context.Context) ([]models.AssetCategory, error) {
	if r.failReads {
		return nil, fmt.Errorf("store unavailable")
	}
	return append([]models.AssetCategory{}, r.categories...), nil
}

func (r *memCategoryRepo) GetBySlug(_ context.Context, slug string) (*models.AssetCategory, error) {
	if r.failReads {
		return nil, fmt.Errorf("store unavailable")
	}
	for _, ac := range r.categories {
		if ac.Slug == slug {
			copied := ac
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memCategoryRepo) Create(_ context.Context, ac *models.AssetCategory) error {
	ac.ID = len(r.categories) + 1
	r.categories = append(r.categories, *ac)
	return nil
}

type memSyncLogRepo struct {
	rows []models.SyncLog
}

func (r *memSyncLogRepo) Create(_ context.Context, log *models.SyncLog) error {
	log.ID = len(r.rows) + 1
	log.CreatedAt = time.Now()
	r.rows = append(r.rows, *log)
	return nil
}

func (r *memSyncLogRepo) GetLastSync(_ context.Context, userID string) (*models.SyncLog, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID {
			copied := r.rows[i]
			return &copied, nil
		}
	}
	return nil, nil
}

// staticCredentials hands out one fixed secret, bypassing registration.
type staticCredentials struct {
	secret string
}

func (c *staticCredentials) GetSecret(_ context.Context, _ string, _ bool) string {
	return c.secret
}

func (c *staticCredentials) RegisterUser(_ context.Context, userID string) (*schemas.RegisterResponse, error) {
	return &schemas.RegisterResponse{UserID: userID, Secret: c.secret}, nil
}

func (c *staticCredentials) DeleteUser(_ context.Context, _ string) error {
	return nil
}

func (c *staticCredentials) CreateLink(_ context.Context, _, _, _ string) (string, error) {
	return "", nil
}

// memCache is a process-local stand-in for the redis cache handler.
type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(key string, target interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("cache miss")
	}
	return json.Unmarshal(raw, target)
}

func (c *memCache) Set(key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}
