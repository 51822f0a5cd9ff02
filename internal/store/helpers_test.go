package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/campuslost/lostfound/internal/model"
)

func mustUser(t *testing.T, db *sql.DB, name, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, name, email, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func mustItem(t *testing.T, db *sql.DB, title, itemType string, postedBy int64, approved bool) *model.Item {
	t.Helper()
	ctx := context.Background()
	item, err := CreateItem(ctx, db, model.ItemFields{
		Title:       title,
		Description: "description of " + title,
		Category:    "Others",
		Location:    "Main Hall",
	}, itemType, "", postedBy)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	if approved {
		item, _, err = SetItemApproved(ctx, db, item.ID, true)
		if err != nil {
			t.Fatalf("SetItemApproved(%s): %v", title, err)
		}
	}
	return item
}
