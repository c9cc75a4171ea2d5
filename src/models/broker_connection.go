package models

import "time"

// BrokerConnection represents one user's link to one external
// broker-aggregation identity. Rows are never hard-deleted; disconnects
// flip the Active flag instead.
type BrokerConnection struct {
	ID        int                    `db:"id"`
	UserID    string                 `db:"user_id"`
	BrokerID  string                 `db:"broker_id"`
	Secret    string                 `db:"secret"`
	Active    bool                   `db:"active"`
	Metadata  map[string]interface{} `db:"metadata"`
	CreatedAt time.Time              `db:"created_at"`
	UpdatedAt time.Time              `db:"updated_at"`
}

// MetadataString returns a string metadata value, or "" when absent.
func (c *BrokerConnection) MetadataString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	v, ok := c.Metadata[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MetadataBool returns a bool metadata value, or false when absent.
func (c *BrokerConnection) MetadataBool(key string) bool {
	if c.Metadata == nil {
		return false
	}
	v, ok := c.Metadata[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
