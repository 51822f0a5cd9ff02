package api

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/campuslost/lostfound/internal/imaging"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/service"
	"github.com/campuslost/lostfound/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Items *service.ItemService
	*errorWriter
}

type itemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	Date        *string `json:"date"`
	Type        string  `json:"type"`
}

// maxFormMemory bounds the in-memory part of a multipart item form.
const maxFormMemory = imaging.MaxUploadSize + 1<<20

func isMultipart(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "multipart/form-data"
}

// readItemRequest reads an item from a JSON body or a multipart form with
// an optional "image" file. The caller closes the returned upload.
func readItemRequest(w http.ResponseWriter, r *http.Request) (*itemRequest, *service.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(r) {
		var req itemRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, nil, noop, err
		}
		return &req, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormMemory)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, noop, err
	}

	field := func(name string) *string {
		if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}
	req := &itemRequest{
		Title:       field("title"),
		Description: field("description"),
		Category:    field("category"),
		Location:    field("location"),
		Date:        field("date"),
	}
	if t := field("type"); t != nil {
		req.Type = *t
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return req, nil, noop, nil
	}
	return req, &service.Upload{Body: file, Filename: header.Filename}, func() { file.Close() }, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, upload, done, err := readItemRequest(w, r)
	defer done()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := model.ParseDate(deref(req.Date))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	item, err := h.Items.Create(r.Context(), actor(r), service.NewItem{
		Fields: model.ItemFields{
			Title:       deref(req.Title),
			Description: deref(req.Description),
			Category:    deref(req.Category),
			Location:    deref(req.Location),
			Date:        date,
		},
		Type:  req.Type,
		Image: upload,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "item submitted for approval", item)
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("type"))
}

// ListType returns a handler for GET /api/items/lost and /api/items/found.
func (h *ItemsHandler) ListType(itemType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, itemType)
	}
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request, itemType string) {
	q := r.URL.Query()
	p := parsePagination(r)
	items, total, err := h.Items.List(r.Context(), store.ItemFilter{
		Type:     strings.ToLower(itemType),
		Category: q.Get("category"),
		Title:    q.Get("q"),
	}, p.store())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, items, total, p)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Items.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", item)
}

// Mine handles GET /api/items/mine.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.Items.Mine(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okList(w, items)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	req, upload, done, err := readItemRequest(w, r)
	defer done()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u := service.ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Image:       upload,
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		date, err := model.ParseDate(*req.Date)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		u.Date = &date
	}

	item, err := h.Items.Update(r.Context(), actor(r), id, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "item updated", item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Items.Delete(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "item deleted", nil)
}

// ImageSource serves stored images by id.
type ImageSource interface {
	Open(ctx context.Context, id string) ([]byte, string, error)
}

// ImagesHandler serves item photos.
type ImagesHandler struct {
	Images ImageSource
	*errorWriter
}

// Get handles GET /api/images/{id}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Images == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	data, mimeType, err := h.Images.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Write(data)
}
