package models

import "time"

// Asset is a persisted financial record. Synchronization inserts one row
// per holding per run; there is no upsert keying on symbol, so repeated
// runs accumulate rows.
type Asset struct {
	ID          int                    `db:"id"`
	UserID      string                 `db:"user_id"`
	Name        string                 `db:"name"`
	Value       float64                `db:"value"`
	CategoryID  int                    `db:"category_id"`
	IsLiability bool                   `db:"is_liability"`
	Metadata    map[string]interface{} `db:"metadata"`
	CreatedAt   time.Time              `db:"created_at"`
}
