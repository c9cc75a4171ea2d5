package controllers

import (
	"context"
	"time"

	"server/src/clients/snaptrade"
	"server/src/schemas"
	"server/src/services"
	"server/src/utils"
)

const statusCacheTTL = 5 * time.Minute

type SnapTradeControllerI interface {
	GetAPIStatus(ctx context.Context) (*schemas.APIStatus, error)
	Register(ctx context.Context, userID string) (*schemas.RegisterResponse, error)
	Deregister(ctx context.Context, userID string) error
	CreateLink(ctx context.Context, userID, redirectURI, broker string) (*schemas.LinkResponse, error)
	GetAccounts(ctx context.Context, userID string) ([]schemas.Account, error)
	GetHoldings(ctx context.Context, userID, accountID string, refresh bool) []schemas.Holding
	Sync(ctx context.Context, userID string) *schemas.SyncResponse
	Callback(ctx context.Context, userID, authorizationID, brokerage string) ([]schemas.Account, error)
}

type SnapTradeController struct {
	Client      snaptrade.SnapTradeServiceClientI
	Credentials services.CredentialServiceI
	Holdings    services.HoldingsServiceI
	SyncService services.SyncServiceI

	statusCache *utils.Cache[*schemas.APIStatus]
}

func NewSnapTradeController(
	client snaptrade.SnapTradeServiceClientI,
	credentials services.CredentialServiceI,
	holdings services.HoldingsServiceI,
	sync services.SyncServiceI,
) *SnapTradeController {
	return &SnapTradeController{
		Client:      client,
		Credentials: credentials,
		Holdings:    holdings,
		SyncService: sync,
		statusCache: utils.NewCache[*schemas.APIStatus](),
	}
}

// GetAPIStatus probes the remote aggregation API, cached briefly since
// every dashboard load asks for it.
func (c *SnapTradeController) GetAPIStatus(ctx context.Context) (*schemas.APIStatus, error) {
	if cached, ok := c.statusCache.Get(); ok {
		return cached, nil
	}

	remote, err := c.Client.Status(ctx)
	if err != nil {
		return nil, err
	}
	status := &schemas.APIStatus{
		Online:    remote.Online,
		Version:   remote.Version,
		Timestamp: remote.Timestamp,
	}
	c.statusCache.Set(status, statusCacheTTL)
	return status, nil
}

func (c *SnapTradeController) Register(ctx context.Context, userID string) (*schemas.RegisterResponse, error) {
	return c.Credentials.RegisterUser(ctx, userID)
}

func (c *SnapTradeController) Deregister(ctx context.Context, userID string) error {
	return c.Credentials.DeleteUser(ctx, userID)
}

func (c *SnapTradeController) CreateLink(ctx context.Context, userID, redirectURI, broker string) (*schemas.LinkResponse, error) {
	url, err := c.Credentials.CreateLink(ctx, userID, redirectURI, broker)
	if err != nil {
		return nil, err
	}
	return &schemas.LinkResponse{RedirectURI: url}, nil
}

func (c *SnapTradeController) GetAccounts(ctx context.Context, userID string) ([]schemas.Account, error) {
	return c.Holdings.FetchAccounts(ctx, userID)
}

func (c *SnapTradeController) GetHoldings(ctx context.Context, userID, accountID string, refresh bool) []schemas.Holding {
	return c.Holdings.FetchHoldings(ctx, userID, accountID, refresh)
}

func (c *SnapTradeController) Sync(ctx context.Context, userID string) *schemas.SyncResponse {
	return c.SyncService.SyncAccounts(ctx, userID)
}

func (c *SnapTradeController) Callback(ctx context.Context, userID, authorizationID, brokerage string) ([]schemas.Account, error) {
	return c.SyncService.HandleCallback(ctx, userID, authorizationID, brokerage)
}
