package models

// Stats are the aggregate catalog counters shown on the admin dashboard.
type Stats struct {
	ActiveCategories int `json:"active_categories"`
	ActiveProducts   int `json:"active_products"`
	ArchivedProducts int `json:"archived_products"`
	HistoryEntries   int `json:"history_entries"`
}
