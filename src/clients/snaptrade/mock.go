package snaptrade

import (
	"context"
	"sync"
)

// MockClient is a scripted SnapTradeServiceClientI used by service and
// handler tests. Unset behaviors succeed with empty values.
type MockClient struct {
	mu    sync.Mutex
	calls map[string]int

	StatusFunc               func(ctx context.Context) (*StatusSchema, error)
	RegisterUserFunc         func(ctx context.Context, userID string) (*RegisterUserSchema, error)
	DeleteUserFunc           func(ctx context.Context, userID string) error
	LoginLinkFunc            func(ctx context.Context, userID, secret, broker, redirectURI string) (*LoginRedirectSchema, error)
	ListAccountsFunc         func(ctx context.Context, userID, secret string) ([]AccountSchema, error)
	ListPositionsFunc        func(ctx context.Context, userID, secret, accountID string) ([]PositionSchema, error)
	ListBalancesFunc         func(ctx context.Context, userID, secret, accountID string) ([]BalanceSchema, error)
	RefreshAuthorizationFunc func(ctx context.Context, userID, secret, authorizationID string) error
	RemoveAuthorizationFunc  func(ctx context.Context, userID, secret, authorizationID string) error
}

func NewMockClient() *MockClient {
	return &MockClient{calls: map[string]int{}}
}

func (m *MockClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
}

// Calls returns how many times the named method ran.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockClient) Status(ctx context.Context) (*StatusSchema, error) {
	m.record("Status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &StatusSchema{Online: true}, nil
}

func (m *MockClient) RegisterUser(ctx context.Context, userID string) (*RegisterUserSchema, error) {
	m.record("RegisterUser")
	if m.RegisterUserFunc != nil {
		return m.RegisterUserFunc(ctx, userID)
	}
	return &RegisterUserSchema{UserID: userID, UserSecret: "secret-" + userID}, nil
}

func (m *MockClient) DeleteUser(ctx context.Context, userID string) error {
	m.record("DeleteUser")
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	return nil
}

func (m *MockClient) LoginLink(ctx context.Context, userID, secret, broker, redirectURI string) (*LoginRedirectSchema, error) {
	m.record("LoginLink")
	if m.LoginLinkFunc != nil {
		return m.LoginLinkFunc(ctx, userID, secret, broker, redirectURI)
	}
	return &LoginRedirectSchema{RedirectURI: "https://portal.example/connect"}, nil
}

func (m *MockClient) ListAccounts(ctx context.Context, userID, secret string) ([]AccountSchema, error) {
	m.record("ListAccounts")
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, userID, secret)
	}
	return []AccountSchema{}, nil
}

func (m *MockClient) ListPositions(ctx context.Context, userID, secret, accountID string) ([]PositionSchema, error) {
	m.record("ListPositions")
	if m.ListPositionsFunc != nil {
		return m.ListPositionsFunc(ctx, userID, secret, accountID)
	}
	return []PositionSchema{}, nil
}

func (m *MockClient) ListBalances(ctx context.Context, userID, secret, accountID string) ([]BalanceSchema, error) {
	m.record("ListBalances")
	if m.ListBalancesFunc != nil {
		return m.ListBalancesFunc(ctx, userID, secret, accountID)
	}
	return []BalanceSchema{}, nil
}

func (m *MockClient) RefreshAuthorization(ctx context.Context, userID, secret, authorizationID string) error {
	m.record("RefreshAuthorization")
	if m.RefreshAuthorizationFunc != nil {
		return m.RefreshAuthorizationFunc(ctx, userID, secret, authorizationID)
	}
	return nil
}

func (m *MockClient) RemoveAuthorization(ctx context.Context, userID, secret, authorizationID string) error {
	m.record("RemoveAuthorization")
	if m.RemoveAuthorizationFunc != nil {
		return m.RemoveAuthorizationFunc(ctx, userID, secret, authorizationID)
	}
	return nil
}
