package services

import (
	"context"

	"server/src/repositories"
	"server/src/utils"
)

type RefreshServiceI interface {
	RefreshAll(ctx context.Context) (int, error)
}

// RefreshService is the worker-side sweep over active connections. It
// runs the normal (non-forced) secret lifecycle per user, so stale real
// secrets get refreshed and fallback secrets are left alone.
type RefreshService struct {
	connections repositories.BrokerConnectionRepository
	credentials CredentialServiceI
}

func NewRefreshService(connections repositories.BrokerConnectionRepository, credentials CredentialServiceI) *RefreshService {
	return &RefreshService{
		connections: connections,
		credentials: credentials,
	}
}

func (s *RefreshService) RefreshAll(ctx context.Context) (int, error) {
	logger := utils.LoggerFromContext(ctx)

	conns, err := s.connections.GetActive(ctx, utils.BrokerID)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i := range conns {
		secret := s.credentials.GetSecret(ctx, conns[i].UserID, false)
		if secret != "" {
			refreshed++
		}
	}
	logger.Infof("connection sweep refreshed %d of %d active connections", refreshed, len(conns))
	return refreshed, nil
}
