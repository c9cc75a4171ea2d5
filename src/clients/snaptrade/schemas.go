package snaptrade

// Remote payload shapes for the aggregation API. Field names follow the
// remote JSON, normalization into server/src/schemas happens in services.

type RegisterUserSchema struct {
	UserID     string `json:"userId"`
	UserSecret string `json:"userSecret"`
}

type LoginRedirectSchema struct {
	RedirectURI string `json:"redirectURI"`
	SessionID   string `json:"sessionId"`
}

type StatusSchema struct {
	Online    bool   `json:"online"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type BrokerageSchema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type BalanceAmountSchema struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type AccountSchema struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Number          string               `json:"number"`
	InstitutionName string               `json:"institution_name"`
	Balance         *BalanceAmountSchema `json:"balance"`
	Brokerage       *BrokerageSchema     `json:"brokerage"`
	SyncStatus      *AccountSyncSchema   `json:"sync_status"`
}

type AccountSyncSchema struct {
	HoldingsSuccessful bool `json:"holdings_successful"`
	InitialSyncDone    bool `json:"initial_sync_completed"`
}

type SymbolSchema struct {
	Symbol      string `json:"symbol"`
	RawSymbol   string `json:"raw_symbol"`
	Description string `json:"description"`
	Currency    struct {
		Code string `json:"code"`
	} `json:"currency"`
}

type PositionSchema struct {
	Symbol struct {
		Symbol SymbolSchema `json:"symbol"`
	} `json:"symbol"`
	Units           float64 `json:"units"`
	Price           float64 `json:"price"`
	OpenPNL         float64 `json:"open_pnl"`
	AverageBuyPrice float64 `json:"average_purchase_price"`
	BookValue       float64 `json:"book_value"`
}

type BalanceSchema struct {
	Currency struct {
		Code string `json:"code"`
	} `json:"currency"`
	Cash   float64 `json:"cash"`
	IsCash bool    `json:"is_cash"`
}

type AuthorizationSchema struct {
	ID        string           `json:"id"`
	Brokerage *BrokerageSchema `json:"brokerage"`
	Disabled  bool             `json:"disabled"`
}
