package model

// Stats are the platform-wide aggregate counts shown to administrators.
type Stats struct {
	Users UserStats `json:"users"`
	Items ItemStats `json:"items"`
}

// UserStats counts users by block status and role.
type UserStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Blocked int `json:"blocked"`
	Admins  int `json:"admins"`
}

// ItemStats counts items by type, approval and recency.
type ItemStats struct {
	Total            int `json:"total"`
	Lost             int `json:"lost"`
	Found            int `json:"found"`
	Approved         int `json:"approved"`
	PendingApprovals int `json:"pendingApprovals"`
	Resolved         int `json:"resolved"`
	RecentItems      int `json:"recentItems"`
}
