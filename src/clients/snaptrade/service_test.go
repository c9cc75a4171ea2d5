package snaptrade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/src/utils"
	requests "server/src/utils/requests"
)

func newTestClient(baseURL string) *SnapTradeServiceClient {
	return &SnapTradeServiceClient{
		API:         requests.NewExternalAPIService(nil),
		BaseURL:     baseURL,
		ClientID:    "client-id",
		ConsumerKey: "consumer-key",
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		expected   error
	}{
		{"too early status", http.StatusTooEarly, `{}`, ErrSyncInProgress},
		{"sync detail", http.StatusBadRequest, `{"detail": "Initial holdings sync in progress"}`, ErrSyncInProgress},
		{"conflict status", http.StatusConflict, `{}`, ErrUserExists},
		{"already exists detail", http.StatusBadRequest, `{"detail": "SnapTrade user already exists"}`, ErrUserExists},
		{"not registered detail", http.StatusBadRequest, `{"detail": "User is not registered"}`, ErrNotRegistered},
		{"missing user", http.StatusNotFound, `{"detail": "No such user found"}`, ErrNotRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.statusCode, []byte(tt.body))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestClassifyErrorFallsBackToHTTPError(t *testing.T) {
	err := classifyError(http.StatusInternalServerError, []byte(`{"detail": "something broke"}`))
	var httpErr *utils.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	assert.Equal(t, "something broke", httpErr.Message)
}

func TestCallsFailFastWhenNotInitialized(t *testing.T) {
	client := &SnapTradeServiceClient{API: requests.NewExternalAPIService(nil)}

	_, err := client.RegisterUser(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = client.ListAccounts(context.Background(), "u1", "s")
	assert.ErrorIs(t, err, ErrNotInitialized)
	err = client.DeleteUser(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRegisterUserSignsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snapTrade/registerUser", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Signature"))
		assert.Equal(t, "client-id", r.URL.Query().Get("clientId"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["userId"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RegisterUserSchema{UserID: "u1", UserSecret: "remote-secret"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.RegisterUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", result.UserID)
	assert.Equal(t, "remote-secret", result.UserSecret)
}

func TestRegisterUserConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail": "user already exists"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.RegisterUser(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestListPositionsSyncInProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooEarly)
		_, _ = w.Write([]byte(`{"detail": "initial sync not finished"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ListPositions(context.Background(), "u1", "s", "acc1")
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestLoginLinkBrokerParameter(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = map[string]interface{}{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "u1", r.URL.Query().Get("userId"))
		assert.Equal(t, "s", r.URL.Query().Get("userSecret"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(LoginRedirectSchema{RedirectURI: "https://portal.example/connect"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.LoginLink(context.Background(), "u1", "s", "FIDELITY", "https://app.example/done")
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/connect", result.RedirectURI)
	assert.Equal(t, "FIDELITY", gotBody["broker"])
	assert.Equal(t, true, gotBody["immediateRedirect"])
	assert.Equal(t, "v4", gotBody["connectionPortalVersion"])

	_, err = client.LoginLink(context.Background(), "u1", "s", "", "https://app.example/done")
	require.NoError(t, err)
	_, hasBroker := gotBody["broker"]
	assert.False(t, hasBroker)
}

func TestListAccountsDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "acc1",
			"name": "TFSA",
			"institution_name": "Questrade",
			"balance": {"amount": 1234.5, "currency": "CAD"},
			"sync_status": {"initial_sync_completed": true}
		}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	accounts, err := client.ListAccounts(context.Background(), "u1", "s")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acc1", accounts[0].ID)
	assert.Equal(t, "Questrade", accounts[0].InstitutionName)
	require.NotNil(t, accounts[0].Balance)
	assert.Equal(t, 1234.5, accounts[0].Balance.Amount)
	require.NotNil(t, accounts[0].SyncStatus)
	assert.True(t, accounts[0].SyncStatus.InitialSyncDone)
}

func TestSignatureIsDeterministic(t *testing.T) {
	client := newTestClient("https://example.test")
	params := client.signedParams()

	first, err := client.signature("/accounts", params, nil)
	require.NoError(t, err)
	second, err := client.signature("/accounts", params, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := client.signature("/accounts", params, map[string]string{"userId": "u1"})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestDeleteUserSendsUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/snapTrade/deleteUser", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("userId"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	require.NoError(t, client.DeleteUser(context.Background(), "u1"))
}

func TestCallHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListAccounts(ctx, "u1", "s")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotInitialized, ErrUserExists, ErrNotRegistered, ErrSyncInProgress}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
}
