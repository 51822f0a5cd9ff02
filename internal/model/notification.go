package model

import "time"

// Notification is an in-app message owned by its recipient.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ItemID    int64     `json:"itemId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined fields (not always populated).
	Item *Item `json:"item,omitempty"`
}

// MaxMessageLength bounds notification messages.
const MaxMessageLength = 500
