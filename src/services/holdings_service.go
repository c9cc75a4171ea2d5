package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"server/src/clients/snaptrade"
	"server/src/schemas"
	"server/src/utils"
	redis_utils "server/src/utils/redis"
)

const holdingsCacheTTL = 10 * time.Minute

type HoldingsServiceI interface {
	FetchAccounts(ctx context.Context, userID string) ([]schemas.Account, error)
	FetchHoldings(ctx context.Context, userID, accountID string, refreshCache bool) []schemas.Holding
}

type HoldingsService struct {
	credentials  CredentialServiceI
	client       snaptrade.SnapTradeServiceClientI
	cacheHandler utils.CacheHandlerI
}

func NewHoldingsService(credentials CredentialServiceI, client snaptrade.SnapTradeServiceClientI, cacheHandler utils.CacheHandlerI) *HoldingsService {
	return &HoldingsService{
		credentials:  credentials,
		client:       client,
		cacheHandler: cacheHandler,
	}
}

// FetchAccounts lists the user's connected accounts, normalized.
func (s *HoldingsService) FetchAccounts(ctx context.Context, userID string) ([]schemas.Account, error) {
	secret := s.credentials.GetSecret(ctx, userID, false)
	remote, err := s.client.ListAccounts(ctx, userID, secret)
	if err != nil {
		return nil, err
	}
	accounts := make([]schemas.Account, 0, len(remote))
	for i := range remote {
		accounts = append(accounts, normalizeAccount(&remote[i]))
	}
	return accounts, nil
}

// FetchHoldings normalizes positions and cash balances across the user's
// accounts, optionally filtered to one account. It always returns a list:
// per-account failures are isolated, a remote initial-sync-in-progress
// state yields a pending placeholder, and a top-level failure yields a
// single sentinel error holding.
func (s *HoldingsService) FetchHoldings(ctx context.Context, userID, accountID string, refreshCache bool) []schemas.Holding {
	logger := utils.LoggerFromContext(ctx)

	if !refreshCache {
		if cached, ok := s.cachedHoldings(userID, accountID); ok {
			return cached
		}
	}

	secret := s.credentials.GetSecret(ctx, userID, false)

	remoteAccounts, err := s.client.ListAccounts(ctx, userID, secret)
	if err != nil {
		if errors.Is(err, snaptrade.ErrSyncInProgress) {
			return []schemas.Holding{pendingHolding(accountID, "")}
		}
		logger.WithField("user_id", userID).Errorf("failed to list accounts: %v", err)
		return []schemas.Holding{errorHolding(fmt.Sprintf("failed to fetch holdings: %v", err))}
	}

	holdings := make([]schemas.Holding, 0)
	for i := range remoteAccounts {
		account := &remoteAccounts[i]
		if accountID != "" && account.ID != accountID {
			continue
		}
		holdings = append(holdings, s.accountHoldings(ctx, userID, secret, account)...)
	}

	s.cacheHoldings(userID, accountID, holdings)
	return holdings
}

// accountHoldings collects the holdings of one account. Failures here
// never propagate; they degrade to pending placeholders or skipped data.
func (s *HoldingsService) accountHoldings(ctx context.Context, userID, secret string, account *snaptrade.AccountSchema) []schemas.Holding {
	logger := utils.LoggerFromContext(ctx)
	holdings := make([]schemas.Holding, 0)

	positions, err := s.client.ListPositions(ctx, userID, secret, account.ID)
	if err != nil {
		if errors.Is(err, snaptrade.ErrSyncInProgress) {
			return []schemas.Holding{pendingHolding(account.ID, account.Name)}
		}
		logger.WithField("account_id", account.ID).Errorf("failed to list positions: %v", err)
	} else {
		for i := range positions {
			holdings = append(holdings, normalizePosition(&positions[i], account))
		}
	}

	balances, err := s.client.ListBalances(ctx, userID, secret, account.ID)
	if err != nil {
		// Balance failures are isolated too; positions alone still count.
		logger.WithField("account_id", account.ID).Errorf("failed to list balances: %v", err)
		return holdings
	}
	for i := range balances {
		balance := &balances[i]
		if balance.IsCash && balance.Cash > 0 {
			holdings = append(holdings, cashHolding(balance, account))
		}
	}
	return holdings
}

// normalizePosition converts one remote position into a Holding. A zero
// quantity yields a zero purchase price rather than a division artifact.
func normalizePosition(position *snaptrade.PositionSchema, account *snaptrade.AccountSchema) schemas.Holding {
	symbol := position.Symbol.Symbol
	total := position.Units * position.Price

	purchasePrice := position.AverageBuyPrice
	if purchasePrice == 0 && position.Units != 0 {
		purchasePrice = position.BookValue / position.Units
	}

	gainLoss := position.OpenPNL
	if gainLoss == 0 && position.BookValue != 0 {
		gainLoss = total - position.BookValue
	}

	name := symbol.Description
	if name == "" {
		name = symbol.Symbol
	}

	return schemas.Holding{
		Symbol:        symbol.Symbol,
		Name:          name,
		Quantity:      position.Units,
		Price:         position.Price,
		TotalValue:    total,
		GainLoss:      gainLoss,
		PurchasePrice: purchasePrice,
		AccountID:     account.ID,
		AccountName:   account.Name,
		Brokerage:     brokerageName(account),
		Currency:      symbol.Currency.Code,
	}
}

// cashHolding synthesizes a CASH holding from a positive cash balance.
func cashHolding(balance *snaptrade.BalanceSchema, account *snaptrade.AccountSchema) schemas.Holding {
	currency := balance.Currency.Code
	if currency == "" {
		currency = "USD"
	}
	return schemas.Holding{
		Symbol:      "CASH." + strings.ToUpper(currency),
		Name:        fmt.Sprintf("Cash (%s)", strings.ToUpper(currency)),
		Quantity:    balance.Cash,
		Price:       1,
		TotalValue:  balance.Cash,
		AccountID:   account.ID,
		AccountName: account.Name,
		Brokerage:   brokerageName(account),
		Currency:    strings.ToUpper(currency),
	}
}

// pendingHolding is the placeholder returned while the remote side is
// still running its initial sync.
func pendingHolding(accountID, accountName string) schemas.Holding {
	return schemas.Holding{
		Symbol:      "PENDING",
		Name:        "Initial sync in progress",
		AccountID:   accountID,
		AccountName: accountName,
		Pending:     true,
	}
}

// errorHolding is the sentinel entry returned on a top-level failure, so
// callers always receive a list.
func errorHolding(message string) schemas.Holding {
	return schemas.Holding{
		Symbol: "ERROR",
		Name:   "Holdings unavailable",
		Error:  message,
	}
}

func brokerageName(account *snaptrade.AccountSchema) string {
	if account.Brokerage != nil && account.Brokerage.Name != "" {
		return account.Brokerage.Name
	}
	return account.InstitutionName
}

func normalizeAccount(remote *snaptrade.AccountSchema) schemas.Account {
	account := schemas.Account{
		ID:        remote.ID,
		Name:      remote.Name,
		Number:    remote.Number,
		Brokerage: brokerageName(remote),
	}
	if remote.Balance != nil {
		account.TotalValue = remote.Balance.Amount
		account.Currency = remote.Balance.Currency
	}
	if remote.SyncStatus != nil && !remote.SyncStatus.InitialSyncDone {
		account.SyncPending = true
	}
	return account
}

func (s *HoldingsService) cachedHoldings(userID, accountID string) ([]schemas.Holding, bool) {
	if s.cacheHandler == nil {
		return nil, false
	}
	key, err := redis_utils.GenerateUUID("holdings", userID, accountID)
	if err != nil {
		return nil, false
	}
	var holdings []schemas.Holding
	if err := s.cacheHandler.Get(key, &holdings); err != nil || holdings == nil {
		return nil, false
	}
	return holdings, true
}

func (s *HoldingsService) cacheHoldings(userID, accountID string, holdings []schemas.Holding) {
	if s.cacheHandler == nil || len(holdings) == 0 {
		return
	}
	// Pending or error entries are transient states, not worth caching.
	for i := range holdings {
		if holdings[i].Pending || holdings[i].Error != "" {
			return
		}
	}
	key, err := redis_utils.GenerateUUID("holdings", userID, accountID)
	if err != nil {
		return
	}
	_ = s.cacheHandler.Set(key, holdings, holdingsCacheTTL)
}
