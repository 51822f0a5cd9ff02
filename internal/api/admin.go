package api

import (
	"net/http"
	"strconv"

	"github.com/campuslost/lostfound/internal/service"
	"github.com/campuslost/lostfound/internal/store"
)

// AdminHandler handles moderation endpoints. Routes are admin-only.
type AdminHandler struct {
	Moderation *service.ModerationGate
	*errorWriter
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// Users handles GET /api/admin/users.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	blocked, valid := boolQuery(r, "blocked")
	if !valid {
		jsonError(w, http.StatusBadRequest, "blocked must be true or false")
		return
	}

	p := parsePagination(r)
	users, total, err := h.Moderation.ListUsers(r.Context(), actor(r), store.UserFilter{
		Search:  r.URL.Query().Get("search"),
		Role:    r.URL.Query().Get("role"),
		Blocked: blocked,
	}, p.store())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, users, total, p)
}

// BlockUser handles PUT /api/admin/users/{id}/block.
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.Moderation.BlockUser(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "user blocked", user)
}

// UnblockUser handles PUT /api/admin/users/{id}/unblock.
func (h *AdminHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.Moderation.UnblockUser(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "user unblocked", user)
}

// Items handles GET /api/admin/items.
func (h *AdminHandler) Items(w http.ResponseWriter, r *http.Request) {
	approved, valid := boolQuery(r, "approved")
	if !valid {
		jsonError(w, http.StatusBadRequest, "approved must be true or false")
		return
	}

	q := r.URL.Query()
	p := parsePagination(r)
	items, total, err := h.Moderation.ListItems(r.Context(), actor(r), store.ItemFilter{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Approved: approved,
		Search:   q.Get("search"),
	}, p.store())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okPage(w, items, total, p)
}

// ApproveItem handles PUT /api/admin/items/{id}/approve.
func (h *AdminHandler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Moderation.ApproveItem(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "item approved", item)
}

// RejectItem handles PUT /api/admin/items/{id}/reject.
func (h *AdminHandler) RejectItem(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req reasonRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	item, err := h.Moderation.RejectItem(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "item rejected", item)
}

// DeleteItem handles DELETE /api/admin/items/{id}.
func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Moderation.DeleteItem(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "item deleted", nil)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Moderation.Stats(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", stats)
}
