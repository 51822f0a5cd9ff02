package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslost/lostfound/internal/model"
)

const itemSelect = `SELECT i.id, i.title, i.description, i.category, i.location, i.date, i.type, i.status,
        i.claimed_by, i.image_url, i.posted_by, i.is_approved, i.created_at,
        u.id, u.name, u.email
 FROM items i
 JOIN users u ON u.id = i.posted_by`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var claimedBy sql.NullInt64
	poster := &model.UserSummary{}
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Location, &item.Date,
		&item.Type, &item.Status, &claimedBy, &item.ImageURL, &item.PostedBy, &item.IsApproved, &item.CreatedAt,
		&poster.ID, &poster.Name, &poster.Email); err != nil {
		return nil, err
	}
	if claimedBy.Valid {
		item.ClaimedBy = &claimedBy.Int64
	}
	item.Poster = poster
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem creates a new, unapproved, active item.
func CreateItem(ctx context.Context, db *sql.DB, f model.ItemFields, itemType, imageURL string, postedBy int64) (*model.Item, error) {
	now := time.Now().UTC()
	date := f.Date
	if date.IsZero() {
		date = now
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (title, description, category, location, date, type, image_url, posted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Title, f.Description, f.Category, f.Location, date, itemType, imageURL, postedBy, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID with its poster attached.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. Zero values mean "any".
type ItemFilter struct {
	Type     string
	Category string
	Status   string
	Approved *bool
	PostedBy int64
	// Title matches a case-insensitive substring of the title.
	Title string
	// Search matches a case-insensitive substring of the title or description.
	Search string
}

// PublicItems is the filter for publicly listable items.
func PublicItems() ItemFilter {
	approved := true
	return ItemFilter{Status: model.ItemStatusActive, Approved: &approved}
}

func (f ItemFilter) where() (string, []any) {
	where := ` WHERE 1=1`
	var args []any
	if f.Type != "" {
		where += ` AND i.type = ?`
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.Approved != nil {
		where += ` AND i.is_approved = ?`
		args = append(args, boolInt(*f.Approved))
	}
	if f.PostedBy > 0 {
		where += ` AND i.posted_by = ?`
		args = append(args, f.PostedBy)
	}
	if f.Title != "" {
		where += ` AND lower(i.title) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(f.Title))
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		where += ` AND (lower(i.title) LIKE ? ESCAPE '\' OR lower(i.description) LIKE ? ESCAPE '\')`
		args = append(args, p, p)
	}
	return where, args
}

// ListItems returns items matching the filter, newest first, and the total match count.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter, page Page) ([]model.Item, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items i`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	limit, limitArgs := page.clause()
	rows, err := db.QueryContext(ctx,
		itemSelect+where+` ORDER BY i.created_at DESC, i.id DESC`+limit,
		append(args, limitArgs...)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateItem updates an item's client-writable fields. A zero Date keeps the stored date
// and an empty imageURL keeps the stored image.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, f model.ItemFields, imageURL string) error {
	var date any
	if !f.Date.IsZero() {
		date = f.Date
	}
	_, err := db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, location = ?,
		        date = COALESCE(?, date), image_url = COALESCE(NULLIF(?, ''), image_url)
		 WHERE id = ?`,
		f.Title, f.Description, f.Category, f.Location, date, imageURL, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemApproved sets an item's approval flag. It returns the updated item
// (nil if absent) and whether the flag actually changed.
func SetItemApproved(ctx context.Context, db *sql.DB, id int64, approved bool) (*model.Item, bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET is_approved = ? WHERE id = ? AND is_approved != ?`,
		boolInt(approved), id, boolInt(approved),
	)
	if err != nil {
		return nil, false, fmt.Errorf("setting item approval: %w", err)
	}
	n, _ := result.RowsAffected()

	item, err := GetItem(ctx, db, id)
	if err != nil {
		return nil, false, err
	}
	return item, n > 0, nil
}

// DeleteItem hard-deletes an item; its claims and notifications cascade.
// Returns false if the item did not exist.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
