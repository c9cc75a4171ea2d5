package models

import "time"

// SyncLog records one synchronization or callback run, keeping the
// append-only asset accumulation auditable.
type SyncLog struct {
	ID            int       `db:"id"`
	UserID        string    `db:"user_id"`
	AccountsSeen  int       `db:"accounts_seen"`
	AssetsCreated int       `db:"assets_created"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}
