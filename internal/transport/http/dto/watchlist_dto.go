package dto

import "time"

type WatchlistAddRequest struct {
	ModelID  string   `json:"model_id"`
	Title    string   `json:"title"`
	Platform string   `json:"platform"`
	PriceEUR *float64 `json:"price_eur,omitempty"`
}

type WatchlistAddResponse struct {
	ItemID  int64 `json:"item_id,omitempty"`
	Added   bool  `json:"added"`
	Charged int   `json:"charged"`
}

type WatchlistItemPayload struct {
	ID        int64     `json:"id"`
	ModelID   string    `json:"model_id"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	PriceEUR  *float64  `json:"price_eur,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WatchlistResponse struct {
	Items []WatchlistItemPayload `json:"items"`
}
