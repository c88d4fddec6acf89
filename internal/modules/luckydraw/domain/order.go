package domain

import "time"

// LotteryOrder is the server-owned record of a paid draw. It is fetched
// for confirmation display only and never constructed locally.
type LotteryOrder struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	GiftID    string    `json:"gift_id"`
	GiftName  string    `json:"gift_name"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}
