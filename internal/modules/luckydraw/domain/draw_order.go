package domain

import "time"

// DrawOrder is the archive row written for every draw record. The
// in-memory engine remains the source of truth; this table is
// write-behind display data.
type DrawOrder struct {
	RecordID  string     `gorm:"primaryKey;type:varchar(64)" json:"record_id"`
	UserID    int64      `gorm:"not null;index:idx_draw_orders_user_id" json:"user_id"`
	GiftID    string     `gorm:"type:varchar(64);not null" json:"gift_id"`
	GiftName  string     `gorm:"type:varchar(128);not null" json:"gift_name"`
	Status    string     `gorm:"type:varchar(32);not null;index:idx_draw_orders_status" json:"status"`
	CreatedAt time.Time  `gorm:"not null;index:idx_draw_orders_created_at" json:"created_at"`
	SettledAt *time.Time `json:"settled_at"`
}

// TableName overrides the table name
func (DrawOrder) TableName() string {
	return "draw_orders"
}
