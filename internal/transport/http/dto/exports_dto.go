package dto

type ExportResponse struct {
	Key              string `json:"key"`
	URL              string `json:"url"`
	Rows             int    `json:"rows"`
	Cost             int    `json:"cost"`
	CreditsRemaining int    `json:"credits_remaining"`
}
