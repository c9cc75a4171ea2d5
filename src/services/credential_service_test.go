package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/src/clients/snaptrade"
	"server/src/utils"
)

func newCredentialService(repo *memConnectionRepo, client *snaptrade.MockClient) *CredentialService {
	svc := NewCredentialService(repo, client)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRegisterUserNewRegistration(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	reg, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reg.UserID)
	assert.Equal(t, "secret-u1", reg.Secret)
	assert.Equal(t, MethodNewRegistration, reg.Method)
	assert.False(t, reg.Degraded)

	conn, err := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, conn.Active)
	assert.Equal(t, "secret-u1", conn.Secret)
	assert.Equal(t, MethodNewRegistration, conn.MetadataString("registration_method"))
	assert.NotEmpty(t, conn.MetadataString("registered_at"))
}

func TestGetSecretReusesFreshSecret(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	_, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, client.Calls("RegisterUser"))

	secret := svc.GetSecret(context.Background(), "u1", false)
	assert.Equal(t, "secret-u1", secret)
	assert.Equal(t, 1, client.Calls("RegisterUser"))
}

func TestGetSecretRefreshesStaleSecret(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	_, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)

	// A week later the stored secret is stale; the refresh attempt hits
	// the existing remote identity and reuses the stored secret.
	client.RegisterUserFunc = func(_ context.Context, _ string) (*snaptrade.RegisterUserSchema, error) {
		return nil, snaptrade.ErrUserExists
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }

	secret := svc.GetSecret(context.Background(), "u1", false)
	assert.Equal(t, "secret-u1", secret)
	assert.Equal(t, 2, client.Calls("RegisterUser"))

	conn, err := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, MethodReusedSecret, conn.MetadataString("registration_method"))
	assert.Equal(t, "2026-03-09T12:00:00Z", conn.MetadataString("registered_at"))
}

func TestGetSecretNeverFails(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.RegisterUserFunc = func(_ context.Context, _ string) (*snaptrade.RegisterUserSchema, error) {
		return nil, fmt.Errorf("remote exploded")
	}
	svc := newCredentialService(repo, client)

	secret := svc.GetSecret(context.Background(), "u1", false)
	assert.True(t, strings.HasPrefix(secret, utils.FakeSecretPrefix))

	conn, err := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, conn.Active)
	assert.True(t, conn.MetadataBool("is_fake_secret"))
	assert.Equal(t, MethodFakeFallback, conn.MetadataString("registration_method"))
}

func TestGetSecretSurvivesStoreOutage(t *testing.T) {
	repo := newMemConnectionRepo()
	repo.failReads = true
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	secret := svc.GetSecret(context.Background(), "u1", false)
	assert.True(t, strings.HasPrefix(secret, utils.FakeSecretPrefix))
}

func TestGetSecretDegradesToStoredSecretOnRemoteFailure(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	_, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)

	// A week later the remote side is down entirely; the stale stored
	// secret still beats a synthesized one.
	client.RegisterUserFunc = func(_ context.Context, _ string) (*snaptrade.RegisterUserSchema, error) {
		return nil, fmt.Errorf("remote down")
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }

	secret := svc.GetSecret(context.Background(), "u1", false)
	assert.Equal(t, "secret-u1", secret)
}

func TestGetSecretReusesFallbackSecretUnlessForced(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.RegisterUserFunc = func(_ context.Context, userID string) (*snaptrade.RegisterUserSchema, error) {
		return nil, fmt.Errorf("remote down")
	}
	svc := newCredentialService(repo, client)

	first := svc.GetSecret(context.Background(), "u1", false)
	require.True(t, strings.HasPrefix(first, utils.FakeSecretPrefix))

	second := svc.GetSecret(context.Background(), "u1", false)
	assert.Equal(t, first, second)

	// A forced refresh retries registration; once the remote side
	// recovers the fallback is replaced with a real secret.
	client.RegisterUserFunc = nil
	forced := svc.GetSecret(context.Background(), "u1", true)
	assert.Equal(t, "secret-u1", forced)
}

func TestRegisterUserConflictRegistersModifiedID(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.RegisterUserFunc = func(_ context.Context, userID string) (*snaptrade.RegisterUserSchema, error) {
		if userID == "u1" {
			return nil, snaptrade.ErrUserExists
		}
		return &snaptrade.RegisterUserSchema{UserID: userID, UserSecret: "modified-secret"}, nil
	}
	svc := newCredentialService(repo, client)

	reg, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reg.UserID)
	assert.Equal(t, "modified-secret", reg.Secret)
	assert.Equal(t, MethodModifiedUserID, reg.Method)

	conn, err := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "u1", conn.MetadataString("original_user_id"))
	assert.True(t, strings.HasPrefix(conn.MetadataString("remote_user_id"), "u1_"))
}

func TestRegisterUserConflictChainExhaustedFallsBack(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.RegisterUserFunc = func(_ context.Context, _ string) (*snaptrade.RegisterUserSchema, error) {
		return nil, snaptrade.ErrUserExists
	}
	svc := newCredentialService(repo, client)

	reg, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, MethodFakeFallback, reg.Method)
	assert.True(t, reg.Degraded)
	assert.True(t, strings.HasPrefix(reg.Secret, utils.FakeSecretPrefix))

	// The chain is bounded: original id plus one modified id.
	assert.Equal(t, 2, client.Calls("RegisterUser"))
}

func TestRegisterUserHardFailurePropagates(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.RegisterUserFunc = func(_ context.Context, _ string) (*snaptrade.RegisterUserSchema, error) {
		return nil, fmt.Errorf("boom")
	}
	svc := newCredentialService(repo, client)

	_, err := svc.RegisterUser(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	conn, repoErr := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, repoErr)
	require.NotNil(t, conn)
	assert.False(t, conn.Active)
	assert.Equal(t, "boom", conn.MetadataString("last_error"))
}

func TestDeleteUserDeactivatesConnection(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	svc := newCredentialService(repo, client)

	_, err := svc.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), "u1"))
	assert.Equal(t, 1, client.Calls("DeleteUser"))

	conn, err := repo.GetByUserID(context.Background(), "u1", utils.BrokerID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.False(t, conn.Active)
	assert.NotEmpty(t, conn.MetadataString("disconnected_at"))
	assert.Equal(t, "secret-u1", conn.Secret)
}

func TestCreateLinkNormalizesBroker(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	var gotBroker string
	client.LoginLinkFunc = func(_ context.Context, _, _, broker, _ string) (*snaptrade.LoginRedirectSchema, error) {
		gotBroker = broker
		return &snaptrade.LoginRedirectSchema{RedirectURI: "https://portal.example/connect"}, nil
	}
	svc := newCredentialService(repo, client)

	link, err := svc.CreateLink(context.Background(), "u1", "https://app.example/done", " fidelity ")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/connect", link)
	assert.Equal(t, "FIDELITY", gotBroker)
}

func TestCreateLinkOmitsPortalManagedBrokers(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	var gotBroker string
	client.LoginLinkFunc = func(_ context.Context, _, _, broker, _ string) (*snaptrade.LoginRedirectSchema, error) {
		gotBroker = broker
		return &snaptrade.LoginRedirectSchema{RedirectURI: "https://portal.example/connect"}, nil
	}
	svc := newCredentialService(repo, client)

	for _, broker := range []string{"questrade", "Robinhood", "VANGUARD"} {
		_, err := svc.CreateLink(context.Background(), "u1", "https://app.example/done", broker)
		require.NoError(t, err)
		assert.Empty(t, gotBroker)
	}
}

func TestCreateLinkRegistersAndRetriesOnce(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	calls := 0
	client.LoginLinkFunc = func(_ context.Context, _, _, _, _ string) (*snaptrade.LoginRedirectSchema, error) {
		calls++
		if calls == 1 {
			return nil, snaptrade.ErrNotRegistered
		}
		return &snaptrade.LoginRedirectSchema{RedirectURI: "https://portal.example/retry"}, nil
	}
	svc := newCredentialService(repo, client)

	link, err := svc.CreateLink(context.Background(), "u1", "https://app.example/done", "")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/retry", link)
	assert.Equal(t, 2, client.Calls("LoginLink"))
}

func TestCreateLinkRecreatesOnConflict(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	calls := 0
	client.LoginLinkFunc = func(_ context.Context, _, _, _, _ string) (*snaptrade.LoginRedirectSchema, error) {
		calls++
		if calls == 1 {
			return nil, snaptrade.ErrUserExists
		}
		return &snaptrade.LoginRedirectSchema{RedirectURI: "https://portal.example/recreated"}, nil
	}
	svc := newCredentialService(repo, client)

	link, err := svc.CreateLink(context.Background(), "u1", "https://app.example/done", "")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/recreated", link)
	assert.Equal(t, 1, client.Calls("DeleteUser"))
	assert.Equal(t, 2, client.Calls("LoginLink"))
}

func TestCreateLinkSingleRetryOnly(t *testing.T) {
	repo := newMemConnectionRepo()
	client := snaptrade.NewMockClient()
	client.LoginLinkFunc = func(_ context.Context, _, _, _, _ string) (*snaptrade.LoginRedirectSchema, error) {
		return nil, snaptrade.ErrNotRegistered
	}
	svc := newCredentialService(repo, client)

	_, err := svc.CreateLink(context.Background(), "u1", "https://app.example/done", "")
	require.Error(t, err)
	assert.Equal(t, 2, client.Calls("LoginLink"))
}
