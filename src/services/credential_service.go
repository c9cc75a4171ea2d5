package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"server/src/clients/snaptrade"
	"server/src/models"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/utils"

	"github.com/google/uuid"
)

// secretMaxAge is how long a real secret is reused before a refresh is
// attempted.
const secretMaxAge = 7 * 24 * time.Hour

// Registration fallback chain levels, recorded as registration_method
// metadata on every registration event.
const (
	MethodExistingSecret   = "existing_secret"
	MethodNewRegistration  = "new_registration"
	MethodReusedSecret     = "reused_stored_secret"
	MethodModifiedUserID   = "modified_user_id"
	MethodFakeFallback     = "fake_secret_fallback"
)

// Brokers whose portal flow rejects an explicit broker parameter; for
// these the parameter is omitted entirely.
var noBrokerParam = map[string]bool{
	"QUESTRADE": true,
	"ROBINHOOD": true,
	"VANGUARD":  true,
}

type CredentialServiceI interface {
	GetSecret(ctx context.Context, userID string, forceRefresh bool) string
	RegisterUser(ctx context.Context, userID string) (*schemas.RegisterResponse, error)
	DeleteUser(ctx context.Context, userID string) error
	CreateLink(ctx context.Context, userID, redirectURI, brokerID string) (string, error)
}

type CredentialService struct {
	connections repositories.BrokerConnectionRepository
	client      snaptrade.SnapTradeServiceClientI

	// now is swappable for tests.
	now func() time.Time
}

func NewCredentialService(connections repositories.BrokerConnectionRepository, client snaptrade.SnapTradeServiceClientI) *CredentialService {
	return &CredentialService{
		connections: connections,
		client:      client,
		now:         time.Now,
	}
}

func isPlaceholderSecret(secret string) bool {
	return secret == "" || secret == utils.PlaceholderSecret
}

func isFallbackSecret(conn *models.BrokerConnection) bool {
	return strings.HasPrefix(conn.Secret, utils.FakeSecretPrefix) || conn.MetadataBool("is_fake_secret")
}

func (s *CredentialService) secretAge(conn *models.BrokerConnection) time.Duration {
	registeredAt := conn.MetadataString("registered_at")
	if registeredAt == "" {
		return secretMaxAge + time.Hour
	}
	t, err := time.Parse(time.RFC3339, registeredAt)
	if err != nil {
		return secretMaxAge + time.Hour
	}
	return s.now().Sub(t)
}

// GetSecret returns the broker-session secret for userID. It never fails:
// when registration cannot succeed it degrades to a stale stored secret,
// or synthesizes a fallback marked is_fake_secret so callers can surface
// a "not really connected" state.
func (s *CredentialService) GetSecret(ctx context.Context, userID string, forceRefresh bool) string {
	logger := utils.LoggerFromContext(ctx)

	conn, err := s.connections.GetByUserID(ctx, userID, utils.BrokerID)
	if err != nil {
		logger.WithField("user_id", userID).Errorf("failed to read broker connection: %v", err)
		conn = nil
	}

	if conn != nil && conn.Active && !isPlaceholderSecret(conn.Secret) {
		if isFallbackSecret(conn) {
			// Fallback secrets are reused indefinitely unless forced.
			if !forceRefresh {
				return conn.Secret
			}
		} else if !forceRefresh && s.secretAge(conn) <= secretMaxAge {
			return conn.Secret
		}
	}

	reg, err := s.RegisterUser(ctx, userID)
	if err == nil {
		return reg.Secret
	}
	logger.WithField("user_id", userID).Warnf("registration failed, degrading: %v", err)

	// A stale stored secret still beats a synthesized one.
	if conn != nil && !isPlaceholderSecret(conn.Secret) {
		return conn.Secret
	}

	return s.synthesizeFallbackSecret(ctx, userID)
}

// synthesizeFallbackSecret persists and returns a locally generated
// secret. The session is unusable remotely but keeps the flow non-fatal.
func (s *CredentialService) synthesizeFallbackSecret(ctx context.Context, userID string) string {
	logger := utils.LoggerFromContext(ctx)
	fake := utils.FakeSecretPrefix + uuid.NewString()

	conn := &models.BrokerConnection{
		UserID:   userID,
		BrokerID: utils.BrokerID,
		Secret:   fake,
		Active:   true,
		Metadata: map[string]interface{}{
			"is_fake_secret":      true,
			"registration_method": MethodFakeFallback,
			"registered_at":       s.now().Format(time.RFC3339),
		},
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		logger.WithField("user_id", userID).Errorf("failed to persist fallback secret: %v", err)
	}
	logger.WithField("user_id", userID).Warn("synthesized fallback secret, user is not really connected")
	return fake
}

// RegisterUser registers a remote identity for userID. Conflicts are
// recovered through a bounded fallback chain: reuse a stored secret,
// register a timestamp-suffixed user id, or synthesize a fallback secret.
// Any other remote failure deactivates the connection and propagates.
func (s *CredentialService) RegisterUser(ctx context.Context, userID string) (*schemas.RegisterResponse, error) {
	logger := utils.LoggerFromContext(ctx)

	conn, err := s.connections.GetByUserID(ctx, userID, utils.BrokerID)
	if err != nil {
		return nil, err
	}

	// Short-circuit on an existing usable secret that is not yet stale.
	if conn != nil && conn.Active && !isPlaceholderSecret(conn.Secret) && !isFallbackSecret(conn) && s.secretAge(conn) <= secretMaxAge {
		return &schemas.RegisterResponse{
			UserID: userID,
			Secret: conn.Secret,
			Method: MethodExistingSecret,
		}, nil
	}

	// Mark registration as in progress before the remote call.
	placeholder := &models.BrokerConnection{
		UserID:   userID,
		BrokerID: utils.BrokerID,
		Secret:   utils.PlaceholderSecret,
		Active:   false,
		Metadata: map[string]interface{}{
			"registration_started_at": s.now().Format(time.RFC3339),
		},
	}
	if err := s.connections.Upsert(ctx, placeholder); err != nil {
		return nil, err
	}

	remote, err := s.client.RegisterUser(ctx, userID)
	if err == nil {
		return s.storeSecret(ctx, userID, remote.UserSecret, MethodNewRegistration, nil)
	}

	if errors.Is(err, snaptrade.ErrUserExists) {
		return s.recoverFromConflict(ctx, userID, conn)
	}

	// Hard failure: record it, deactivate, propagate.
	logger.WithField("user_id", userID).Errorf("remote registration failed: %v", err)
	_ = s.connections.UpdateMetadata(ctx, userID, utils.BrokerID, map[string]interface{}{
		"last_error": err.Error(),
	})
	_ = s.connections.SetActive(ctx, userID, utils.BrokerID, false)
	return nil, fmt.Errorf("failed to register user %s: %w", userID, err)
}

// recoverFromConflict walks the "already exists" fallback chain.
func (s *CredentialService) recoverFromConflict(ctx context.Context, userID string, conn *models.BrokerConnection) (*schemas.RegisterResponse, error) {
	logger := utils.LoggerFromContext(ctx)

	// (a) A non-placeholder secret already in the store still works for
	// the existing remote identity.
	if conn != nil && !isPlaceholderSecret(conn.Secret) && !isFallbackSecret(conn) {
		logger.WithField("user_id", userID).Info("remote identity exists, reusing stored secret")
		return s.storeSecret(ctx, userID, conn.Secret, MethodReusedSecret, nil)
	}

	// (b) Register a modified user id and keep the secret under the
	// original id, tagging provenance.
	modifiedID := fmt.Sprintf("%s_%d", userID, s.now().Unix())
	remote, err := s.client.RegisterUser(ctx, modifiedID)
	if err == nil {
		logger.WithField("user_id", userID).Infof("registered modified user id %s", modifiedID)
		return s.storeSecret(ctx, userID, remote.UserSecret, MethodModifiedUserID, map[string]interface{}{
			"original_user_id": userID,
			"remote_user_id":   modifiedID,
		})
	}
	logger.WithField("user_id", userID).Warnf("modified id registration failed: %v", err)

	// (c) Synthesize a fallback secret; the chain always terminates with
	// some secret.
	fake := s.synthesizeFallbackSecret(ctx, userID)
	return &schemas.RegisterResponse{
		UserID:   userID,
		Secret:   fake,
		Method:   MethodFakeFallback,
		Degraded: true,
	}, nil
}

func (s *CredentialService) storeSecret(ctx context.Context, userID, secret, method string, extra map[string]interface{}) (*schemas.RegisterResponse, error) {
	metadata := map[string]interface{}{
		"registered_at":       s.now().Format(time.RFC3339),
		"registration_method": method,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	conn := &models.BrokerConnection{
		UserID:   userID,
		BrokerID: utils.BrokerID,
		Secret:   secret,
		Active:   true,
		Metadata: metadata,
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return nil, err
	}
	return &schemas.RegisterResponse{UserID: userID, Secret: secret, Method: method}, nil
}

// DeleteUser removes the remote identity best-effort and deactivates the
// local connection. The row survives as an inactive record.
func (s *CredentialService) DeleteUser(ctx context.Context, userID string) error {
	logger := utils.LoggerFromContext(ctx)

	if err := s.client.DeleteUser(ctx, userID); err != nil && !errors.Is(err, snaptrade.ErrNotRegistered) {
		logger.WithField("user_id", userID).Warnf("remote delete failed: %v", err)
	}

	if err := s.connections.SetActive(ctx, userID, utils.BrokerID, false); err != nil {
		return err
	}
	return s.connections.UpdateMetadata(ctx, userID, utils.BrokerID, map[string]interface{}{
		"disconnected_at": s.now().Format(time.RFC3339),
	})
}

// CreateLink generates the connection portal URL for userID. A
// not-registered failure triggers registration and a single retry; an
// already-exists conflict triggers a remote delete-then-recreate before
// the retry.
func (s *CredentialService) CreateLink(ctx context.Context, userID, redirectURI, brokerID string) (string, error) {
	logger := utils.LoggerFromContext(ctx)

	broker := strings.ToUpper(strings.TrimSpace(brokerID))
	if noBrokerParam[broker] {
		broker = ""
	}

	secret := s.GetSecret(ctx, userID, false)

	link, err := s.client.LoginLink(ctx, userID, secret, broker, redirectURI)
	if err == nil {
		return link.RedirectURI, nil
	}

	switch {
	case errors.Is(err, snaptrade.ErrNotRegistered):
		logger.WithField("user_id", userID).Info("user not registered, registering and retrying link")
		reg, regErr := s.RegisterUser(ctx, userID)
		if regErr != nil {
			return "", fmt.Errorf("failed to register user for link: %w", regErr)
		}
		secret = reg.Secret
	case errors.Is(err, snaptrade.ErrUserExists):
		logger.WithField("user_id", userID).Warn("conflicting remote identity, recreating")
		if delErr := s.client.DeleteUser(ctx, userID); delErr != nil {
			logger.WithField("user_id", userID).Warnf("remote delete before recreate failed: %v", delErr)
		}
		reg, regErr := s.RegisterUser(ctx, userID)
		if regErr != nil {
			return "", fmt.Errorf("failed to recreate user for link: %w", regErr)
		}
		secret = reg.Secret
	default:
		return "", fmt.Errorf("failed to generate connection link: %w", err)
	}

	// Single retry, not unbounded recursion.
	link, err = s.client.LoginLink(ctx, userID, secret, broker, redirectURI)
	if err != nil {
		return "", fmt.Errorf("failed to generate connection link after retry: %w", err)
	}
	return link.RedirectURI, nil
}
