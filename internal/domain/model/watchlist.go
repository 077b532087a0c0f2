package model

import "time"

type WatchlistItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ModelID   string    `json:"model_id"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	PriceEUR  *float64  `json:"price_eur,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
