package services

import (
	"context"
	"fmt"
	"time"

	"server/src/clients/snaptrade"
	"server/src/models"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/utils"
)

// authorizationSettleDelay gives the remote side time to finish pulling
// holdings after an authorization refresh before accounts are re-fetched.
const authorizationSettleDelay = 2 * time.Second

type SyncServiceI interface {
	HandleCallback(ctx context.Context, userID, authorizationID, brokerage string) ([]schemas.Account, error)
	SyncAccounts(ctx context.Context, userID string) *schemas.SyncResponse
}

type SyncService struct {
	connections repositories.BrokerConnectionRepository
	assets      repositories.AssetRepository
	categories  repositories.AssetCategoryRepository
	syncLogs    repositories.SyncLogRepository
	credentials CredentialServiceI
	holdings    HoldingsServiceI
	client      snaptrade.SnapTradeServiceClientI

	settleDelay time.Duration
}

func NewSyncService(
	connections repositories.BrokerConnectionRepository,
	assets repositories.AssetRepository,
	categories repositories.AssetCategoryRepository,
	syncLogs repositories.SyncLogRepository,
	credentials CredentialServiceI,
	holdings HoldingsServiceI,
	client snaptrade.SnapTradeServiceClientI,
) *SyncService {
	return &SyncService{
		connections: connections,
		assets:      assets,
		categories:  categories,
		syncLogs:    syncLogs,
		credentials: credentials,
		holdings:    holdings,
		client:      client,
		settleDelay: authorizationSettleDelay,
	}
}

// HandleCallback runs after the user completes the connection portal
// flow: it activates the connection, refreshes the authorization
// best-effort, and imports every discovered holding as a new Asset row.
// Re-running it for the same account inserts duplicate rows; asset
// import is append-only.
func (s *SyncService) HandleCallback(ctx context.Context, userID, authorizationID, brokerage string) ([]schemas.Account, error) {
	logger := utils.LoggerFromContext(ctx)

	if err := s.connections.SetActive(ctx, userID, utils.BrokerID, true); err != nil {
		logger.WithField("user_id", userID).Errorf("failed to activate connection: %v", err)
	}
	if err := s.connections.UpdateMetadata(ctx, userID, utils.BrokerID, map[string]interface{}{
		"connected_at":          time.Now().Format(time.RFC3339),
		"last_authorization_id": authorizationID,
		"last_brokerage":        brokerage,
	}); err != nil {
		logger.WithField("user_id", userID).Errorf("failed to update connection metadata: %v", err)
	}

	secret := s.credentials.GetSecret(ctx, userID, false)
	if authorizationID != "" {
		if err := s.client.RefreshAuthorization(ctx, userID, secret, authorizationID); err != nil {
			logger.WithField("user_id", userID).Warnf("authorization refresh failed: %v", err)
		}
		// Give the remote sync a moment to settle before re-fetching.
		time.Sleep(s.settleDelay)
	}

	// The import requires a pre-existing investments category.
	category, err := s.categories.GetBySlug(ctx, utils.InvestmentsCategorySlug)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q category: %w", utils.InvestmentsCategorySlug, err)
	}
	if category == nil {
		return nil, fmt.Errorf("missing %q asset category, cannot import holdings", utils.InvestmentsCategorySlug)
	}

	accounts, err := s.holdings.FetchAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts after callback: %w", err)
	}

	holdings := s.holdings.FetchHoldings(ctx, userID, "", true)
	created := 0
	for i := range holdings {
		holding := &holdings[i]
		if holding.Pending || holding.Error != "" {
			continue
		}
		asset := &models.Asset{
			UserID:     userID,
			Name:       holding.Name,
			Value:      holding.TotalValue,
			CategoryID: category.ID,
			Metadata: map[string]interface{}{
				"source":       utils.BrokerID,
				"symbol":       holding.Symbol,
				"account_id":   holding.AccountID,
				"account_name": holding.AccountName,
				"brokerage":    holding.Brokerage,
				"currency":     holding.Currency,
				"quantity":     holding.Quantity,
				"price":        holding.Price,
			},
		}
		if err := s.assets.Create(ctx, asset, nil); err != nil {
			logger.WithField("symbol", holding.Symbol).Errorf("failed to create asset: %v", err)
			continue
		}
		created++
	}

	if err := s.syncLogs.Create(ctx, &models.SyncLog{
		UserID:        userID,
		AccountsSeen:  len(accounts),
		AssetsCreated: created,
		Status:        schemas.SyncStatusSuccess,
	}); err != nil {
		logger.WithField("user_id", userID).Errorf("failed to record sync log: %v", err)
	}

	return accounts, nil
}

// SyncAccounts produces the dashboard synchronization envelope. It never
// fails; remote trouble degrades the syncStatus instead.
func (s *SyncService) SyncAccounts(ctx context.Context, userID string) *schemas.SyncResponse {
	accounts, err := s.holdings.FetchAccounts(ctx, userID)
	if err != nil {
		return &schemas.SyncResponse{
			Success:      false,
			SyncStatus:   schemas.SyncStatusFailed,
			SyncMessage:  fmt.Sprintf("failed to fetch accounts: %v", err),
			LastSyncedAt: s.lastSyncedAt(ctx, userID),
			Accounts:     []schemas.Account{},
			Holdings:     []schemas.Holding{},
		}
	}

	holdings := s.holdings.FetchHoldings(ctx, userID, "", false)

	status := schemas.SyncStatusSuccess
	message := fmt.Sprintf("synced %d accounts", len(accounts))
	errored, pending := 0, 0
	for i := range holdings {
		if holdings[i].Error != "" {
			errored++
		}
		if holdings[i].Pending {
			pending++
		}
	}
	switch {
	case len(holdings) > 0 && errored == len(holdings):
		status = schemas.SyncStatusFailed
		message = holdings[0].Error
	case errored > 0 || pending > 0:
		status = schemas.SyncStatusPartial
		message = fmt.Sprintf("synced %d accounts, %d entries pending or unavailable", len(accounts), errored+pending)
	}

	return &schemas.SyncResponse{
		Success:      status != schemas.SyncStatusFailed,
		SyncStatus:   status,
		SyncMessage:  message,
		LastSyncedAt: s.lastSyncedAt(ctx, userID),
		Accounts:     accounts,
		Holdings:     holdings,
	}
}

// lastSyncedAt reads the timestamp of the most recent import run, "" when
// none has happened or the lookup fails.
func (s *SyncService) lastSyncedAt(ctx context.Context, userID string) string {
	last, err := s.syncLogs.GetLastSync(ctx, userID)
	if err != nil {
		utils.LoggerFromContext(ctx).WithField("user_id", userID).Warnf("failed to read last sync: %v", err)
		return ""
	}
	if last == nil {
		return ""
	}
	return last.CreatedAt.Format(time.RFC3339)
}
