package snaptrade

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"server/src/utils"
)

// Sentinel errors classified once at the adapter boundary, so callers can
// branch with errors.Is instead of re-matching remote detail strings.
var (
	// ErrNotInitialized is returned by every call when the client
	// credentials were never configured.
	ErrNotInitialized = errors.New("snaptrade client not initialized: missing client id or consumer key")

	// ErrUserExists maps remote "user already exists" conflicts.
	ErrUserExists = errors.New("snaptrade user already exists")

	// ErrNotRegistered maps remote "user not registered" failures.
	ErrNotRegistered = errors.New("snaptrade user not registered")

	// ErrSyncInProgress maps the 425 "initial sync not finished" state.
	ErrSyncInProgress = errors.New("snaptrade holdings sync still in progress")
)

type apiErrorBody struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
}

// classifyError converts a non-2xx response into one of the sentinel
// errors above, or an HTTPError carrying the remote detail.
func classifyError(statusCode int, body []byte) error {
	var parsed apiErrorBody
	_ = json.Unmarshal(body, &parsed)
	detail := strings.ToLower(parsed.Detail)

	switch {
	case statusCode == http.StatusTooEarly:
		return ErrSyncInProgress
	case strings.Contains(detail, "sync in progress"):
		return ErrSyncInProgress
	case statusCode == http.StatusConflict:
		return ErrUserExists
	case strings.Contains(detail, "already exist"):
		return ErrUserExists
	case strings.Contains(detail, "not registered"):
		return ErrNotRegistered
	case statusCode == http.StatusNotFound && strings.Contains(detail, "user"):
		return ErrNotRegistered
	}

	message := parsed.Detail
	if message == "" {
		message = fmt.Sprintf("snaptrade request failed with status %d", statusCode)
	}
	return utils.NewHTTPError(statusCode, message)
}
