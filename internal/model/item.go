package model

import (
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is a lost or found posting.
type Item struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	ClaimedBy   *int64    `json:"claimedBy"`
	ImageURL    string    `json:"imageUrl"`
	PostedBy    int64     `json:"postedBy"`
	IsApproved  bool      `json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`

	// Joined fields (not always populated).
	Poster *UserSummary `json:"poster,omitempty"`
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item statuses.
const (
	ItemStatusActive   = "active"
	ItemStatusResolved = "resolved"
)

// Categories is the closed set of item categories.
var Categories = []string{
	"Electronics",
	"Books",
	"Clothing",
	"Accessories",
	"ID Cards",
	"Keys",
	"Bags",
	"Others",
}

// Field limits.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// ValidType reports whether t is lost or found.
func ValidType(t string) bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// OppositeType returns the counterpart type used for matching.
func OppositeType(t string) string {
	if t == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// Listable reports whether the item is publicly visible.
func (i *Item) Listable() bool {
	return i.IsApproved && i.Status == ItemStatusActive
}

// ItemFields are the client-writable fields of an item.
type ItemFields struct {
	Title       string
	Description string
	Category    string
	Location    string
	Date        time.Time
}

// Normalize trims whitespace from the free-text fields.
func (f *ItemFields) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Location = strings.TrimSpace(f.Location)
	f.Description = strings.TrimSpace(f.Description)
}

// Validate checks the fields after Normalize.
func (f *ItemFields) Validate() error {
	switch {
	case f.Title == "":
		return errors.New("please provide a title")
	case utf8.RuneCountInString(f.Title) > MaxTitleLength:
		return errors.New("title cannot be more than 100 characters")
	case f.Description == "":
		return errors.New("please provide a description")
	case utf8.RuneCountInString(f.Description) > MaxDescriptionLength:
		return errors.New("description cannot be more than 1000 characters")
	case !ValidCategory(f.Category):
		return errors.New("please provide a valid category")
	case f.Location == "":
		return errors.New("please provide a location")
	}
	return nil
}

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
// An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}
