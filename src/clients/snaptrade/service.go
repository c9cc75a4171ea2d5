package snaptrade

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"server/src/config"
	requests "server/src/utils/requests"
)

type SnapTradeServiceClientI interface {
	Status(ctx context.Context) (*StatusSchema, error)
	RegisterUser(ctx context.Context, userID string) (*RegisterUserSchema, error)
	DeleteUser(ctx context.Context, userID string) error
	LoginLink(ctx context.Context, userID, secret, broker, redirectURI string) (*LoginRedirectSchema, error)
	ListAccounts(ctx context.Context, userID, secret string) ([]AccountSchema, error)
	ListPositions(ctx context.Context, userID, secret, accountID string) ([]PositionSchema, error)
	ListBalances(ctx context.Context, userID, secret, accountID string) ([]BalanceSchema, error)
	RefreshAuthorization(ctx context.Context, userID, secret, authorizationID string) error
	RemoveAuthorization(ctx context.Context, userID, secret, authorizationID string) error
}

// SnapTradeServiceClient is a struct that uses ExternalAPIService to
// interact with the broker-aggregation API.
type SnapTradeServiceClient struct {
	API         *requests.ExternalAPIService
	BaseURL     string
	ClientID    string
	ConsumerKey string
}

// NewClient creates a new instance of SnapTradeServiceClient. The returned
// client is usable even without credentials; every call then fails fast
// with ErrNotInitialized.
func NewClient(cfg *config.Config) *SnapTradeServiceClient {
	api := requests.NewExternalAPIService(nil)
	return &SnapTradeServiceClient{
		API:         api,
		BaseURL:     cfg.ExternalClients.SnapTrade.BaseURL,
		ClientID:    cfg.ExternalClients.SnapTrade.ClientID,
		ConsumerKey: cfg.ExternalClients.SnapTrade.ConsumerKey,
	}
}

func (s *SnapTradeServiceClient) initialized() bool {
	return s.ClientID != "" && s.ConsumerKey != ""
}

// signedParams returns the base query parameters every request carries.
func (s *SnapTradeServiceClient) signedParams() url.Values {
	params := url.Values{}
	params.Set("clientId", s.ClientID)
	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	return params
}

// signature computes the request signature header over path, query and body.
func (s *SnapTradeServiceClient) signature(path string, params url.Values, body interface{}) (string, error) {
	payload := map[string]interface{}{
		"path":  path,
		"query": params.Encode(),
	}
	if body != nil {
		payload["content"] = body
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(s.ConsumerKey))
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// call performs one signed request and decodes the response into target.
// Non-2xx responses are classified into the adapter's typed errors.
func (s *SnapTradeServiceClient) call(ctx context.Context, method, path string, params url.Values, body interface{}, target interface{}) error {
	if !s.initialized() {
		return ErrNotInitialized
	}
	if params == nil {
		params = s.signedParams()
	}

	sig, err := s.signature(path, params, body)
	if err != nil {
		return err
	}
	headers := map[string]string{"Signature": sig}

	endpoint := s.BaseURL + path
	var resp *http.Response
	switch method {
	case http.MethodGet:
		resp, err = s.API.Get(ctx, endpoint, params, headers)
	case http.MethodPost:
		resp, err = s.API.Post(ctx, endpoint, params, body, headers)
	case http.MethodPut:
		resp, err = s.API.Put(ctx, endpoint, params, body, headers)
	case http.MethodDelete:
		resp, err = s.API.Delete(ctx, endpoint, params, body, headers)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return classifyError(resp.StatusCode, responseBody)
	}

	if target == nil {
		return nil
	}
	return json.Unmarshal(responseBody, target)
}

// Status checks whether the remote aggregation API is reachable.
func (s *SnapTradeServiceClient) Status(ctx context.Context) (*StatusSchema, error) {
	var result StatusSchema
	if err := s.call(ctx, http.MethodGet, "/", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterUser registers a new remote identity and returns its secret.
func (s *SnapTradeServiceClient) RegisterUser(ctx context.Context, userID string) (*RegisterUserSchema, error) {
	var result RegisterUserSchema
	body := map[string]string{"userId": userID}
	if err := s.call(ctx, http.MethodPost, "/snapTrade/registerUser", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteUser removes the remote identity entirely.
func (s *SnapTradeServiceClient) DeleteUser(ctx context.Context, userID string) error {
	if !s.initialized() {
		return ErrNotInitialized
	}
	params := s.signedParams()
	params.Set("userId", userID)
	return s.call(ctx, http.MethodDelete, "/snapTrade/deleteUser", params, nil, nil)
}

// LoginLink generates the connection portal URL. An empty broker omits
// the broker parameter entirely.
func (s *SnapTradeServiceClient) LoginLink(ctx context.Context, userID, secret, broker, redirectURI string) (*LoginRedirectSchema, error) {
	if !s.initialized() {
		return nil, ErrNotInitialized
	}
	var result LoginRedirectSchema
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)

	body := map[string]interface{}{
		"immediateRedirect":       true,
		"customRedirect":          redirectURI,
		"connectionPortalVersion": "v4",
	}
	if broker != "" {
		body["broker"] = broker
	}
	if err := s.call(ctx, http.MethodPost, "/snapTrade/login", params, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAccounts retrieves all connected brokerage accounts for the user.
func (s *SnapTradeServiceClient) ListAccounts(ctx context.Context, userID, secret string) ([]AccountSchema, error) {
	if !s.initialized() {
		return nil, ErrNotInitialized
	}
	var result []AccountSchema
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)
	if err := s.call(ctx, http.MethodGet, "/accounts", params, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPositions retrieves the positions of one account.
func (s *SnapTradeServiceClient) ListPositions(ctx context.Context, userID, secret, accountID string) ([]PositionSchema, error) {
	if !s.initialized() {
		return nil, ErrNotInitialized
	}
	var result []PositionSchema
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)
	path := fmt.Sprintf("/accounts/%s/positions", accountID)
	if err := s.call(ctx, http.MethodGet, path, params, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListBalances retrieves the cash balances of one account.
func (s *SnapTradeServiceClient) ListBalances(ctx context.Context, userID, secret, accountID string) ([]BalanceSchema, error) {
	if !s.initialized() {
		return nil, ErrNotInitialized
	}
	var result []BalanceSchema
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)
	path := fmt.Sprintf("/accounts/%s/balances", accountID)
	if err := s.call(ctx, http.MethodGet, path, params, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshAuthorization asks the remote side to re-pull holdings for one
// brokerage authorization.
func (s *SnapTradeServiceClient) RefreshAuthorization(ctx context.Context, userID, secret, authorizationID string) error {
	if !s.initialized() {
		return ErrNotInitialized
	}
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)
	path := fmt.Sprintf("/authorizations/%s/refresh", authorizationID)
	return s.call(ctx, http.MethodPost, path, params, nil, nil)
}

// RemoveAuthorization deletes one brokerage authorization remotely.
func (s *SnapTradeServiceClient) RemoveAuthorization(ctx context.Context, userID, secret, authorizationID string) error {
	if !s.initialized() {
		return ErrNotInitialized
	}
	params := s.signedParams()
	params.Set("userId", userID)
	params.Set("userSecret", secret)
	path := fmt.Sprintf("/authorizations/%s", authorizationID)
	return s.call(ctx, http.MethodDelete, path, params, nil, nil)
}
