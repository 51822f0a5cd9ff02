package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/campuslost/lostfound/internal/blob"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// ItemService covers posting, browsing and owner edits of items.
type ItemService struct {
	DB    *sql.DB
	Blobs blob.Store

	fan    *fanOut
	logger *slog.Logger
}

// Upload is an optional photo attached to an item write.
type Upload struct {
	Body     io.Reader
	Filename string
}

// NewItem is the input for Create.
type NewItem struct {
	Fields model.ItemFields
	Type   string
	Image  *Upload
}

// ItemUpdate holds the fields an owner may change. Nil fields are kept.
type ItemUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	Date        *time.Time
	Image       *Upload
}

// Create posts a new item pending moderation and notifies owners of
// matching approved items.
func (s *ItemService) Create(ctx context.Context, actor Actor, in NewItem) (*model.Item, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if !model.ValidType(in.Type) {
		return nil, validationError("type must be lost or found")
	}
	in.Fields.Normalize()
	if err := in.Fields.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}

	imageURL, err := s.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	item, err := store.CreateItem(ctx, s.DB, in.Fields, in.Type, imageURL, actor.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "item created", "item", item.ID, "type", item.Type, "user", actor.ID)

	s.fan.notify(ctx, "item.create", item)
	return item, nil
}

func (s *ItemService) upload(ctx context.Context, u *Upload) (string, error) {
	if u == nil || u.Body == nil {
		return "", nil
	}
	if s.Blobs == nil {
		return "", validationError("image uploads are not enabled")
	}
	url, err := s.Blobs.Upload(ctx, u.Body, u.Filename)
	if errors.Is(err, blob.ErrInvalidImage) {
		return "", validationError("%s", err.Error())
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// List returns publicly visible items matching f. Status and approval in f
// are overridden.
func (s *ItemService) List(ctx context.Context, f store.ItemFilter, page store.Page) ([]model.Item, int, error) {
	if f.Type != "" && !model.ValidType(f.Type) {
		return nil, 0, validationError("type must be lost or found")
	}
	if f.Category != "" && !model.ValidCategory(f.Category) {
		return nil, 0, validationError("invalid category %q", f.Category)
	}
	public := store.PublicItems()
	f.Status, f.Approved = public.Status, public.Approved
	f.PostedBy = 0
	return store.ListItems(ctx, s.DB, f, page)
}

// Get returns an item with its poster.
func (s *ItemService) Get(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	return item, nil
}

// Mine returns every item the actor posted, in any state, newest first.
func (s *ItemService) Mine(ctx context.Context, actor Actor) ([]model.Item, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	items, _, err := store.ListItems(ctx, s.DB, store.ItemFilter{PostedBy: actor.ID}, store.Page{})
	return items, err
}

// Update edits an item's descriptive fields. Only the owner may edit.
func (s *ItemService) Update(ctx context.Context, actor Actor, id int64, u ItemUpdate) (*model.Item, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("item")
	}
	if err := requireOwner(actor, item, "update it"); err != nil {
		return nil, err
	}

	f := model.ItemFields{
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		Date:        item.Date,
	}
	if u.Title != nil {
		f.Title = *u.Title
	}
	if u.Description != nil {
		f.Description = *u.Description
	}
	if u.Category != nil {
		f.Category = *u.Category
	}
	if u.Location != nil {
		f.Location = *u.Location
	}
	if u.Date != nil {
		f.Date = *u.Date
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}

	imageURL, err := s.upload(ctx, u.Image)
	if err != nil {
		return nil, err
	}

	if err := store.UpdateItem(ctx, s.DB, id, f, imageURL); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "item updated", "item", id, "user", actor.ID)
	return store.GetItem(ctx, s.DB, id)
}

// Delete removes an item the actor owns, with its claims and notifications.
func (s *ItemService) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if item == nil {
		return notFound("item")
	}
	if err := requireOwner(actor, item, "delete it"); err != nil {
		return err
	}
	if _, err := store.DeleteItem(ctx, s.DB, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "item deleted", "item", id, "user", actor.ID)
	return nil
}
