package schemas

// NetWorth totals computed from persisted assets.
type NetWorth struct {
	TotalAssets      float64 `json:"totalAssets"`
	TotalLiabilities float64 `json:"totalLiabilities"`
	NetWorth         float64 `json:"netWorth"`
}

// CategoryTotal is one slice of the category breakdown.
type CategoryTotal struct {
	Slug  string  `json:"slug"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// AssetSummary is the dashboard read model: totals plus breakdown.
type AssetSummary struct {
	NetWorth   NetWorth        `json:"netWorth"`
	Categories []CategoryTotal `json:"categories"`
}
