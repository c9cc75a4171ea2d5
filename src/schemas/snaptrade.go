package schemas

// Account is a normalized view of one external brokerage account.
type Account struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Number      string  `json:"number,omitempty"`
	Brokerage   string  `json:"brokerage"`
	TotalValue  float64 `json:"totalValue"`
	Currency    string  `json:"currency"`
	SyncPending bool    `json:"syncPending,omitempty"`
}

// Holding is a derived, transient view of one position or cash balance
// within one external account. It is either returned to the caller or
// converted into a persisted Asset, never stored as its own entity.
type Holding struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	TotalValue    float64 `json:"totalValue"`
	GainLoss      float64 `json:"gainLoss"`
	PurchasePrice float64 `json:"purchasePrice"`
	AccountID     string  `json:"accountId"`
	AccountName   string  `json:"accountName"`
	Brokerage     string  `json:"brokerage"`
	Currency      string  `json:"currency"`
	Pending       bool    `json:"pending,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// RegisterResponse is the credential lifecycle result for one user.
type RegisterResponse struct {
	UserID string `json:"userId"`
	Secret string `json:"-"`
	// Method records which level of the registration fallback chain
	// produced the secret.
	Method string `json:"method"`
	// Degraded is set when the secret is a synthesized fallback and the
	// user is not really connected.
	Degraded bool `json:"degraded,omitempty"`
}

// LinkRequest is the connection-portal URL request body.
type LinkRequest struct {
	RedirectURI string `json:"redirectUri"`
	Broker      string `json:"broker,omitempty"`
}

type LinkResponse struct {
	RedirectURI string `json:"redirectURI"`
}

// CallbackRequest is posted by the frontend after the user completes the
// connection portal flow.
type CallbackRequest struct {
	AuthorizationID string `json:"authorizationId"`
	Brokerage       string `json:"brokerage"`
}

// SyncStatus values for the synchronization response envelope.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncResponse is the synchronization envelope returned to the dashboard.
// LastSyncedAt reports the most recent holdings import for the user, when
// one has happened.
type SyncResponse struct {
	Success      bool      `json:"success"`
	SyncStatus   string    `json:"syncStatus"`
	SyncMessage  string    `json:"syncMessage,omitempty"`
	LastSyncedAt string    `json:"lastSyncedAt,omitempty"`
	Accounts     []Account `json:"accounts"`
	Holdings     []Holding `json:"holdings"`
}

// APIStatus reports whether the remote aggregation API is reachable.
type APIStatus struct {
	Online    bool   `json:"online"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
