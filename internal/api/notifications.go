package api

import (
	"net/http"

	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/service"
)

// NotificationsHandler handles the caller's notification inbox.
type NotificationsHandler struct {
	Inbox *service.Inbox
	*errorWriter
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	page, err := h.Inbox.List(r.Context(), actor(r), p.store())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list := page.Notifications
	if list == nil {
		list = []model.Notification{}
	}
	n := len(list)
	pages := (page.Total + p.limit - 1) / p.limit
	jsonResponse(w, http.StatusOK, envelope{
		Success:     true,
		Data:        list,
		Count:       &n,
		Total:       &page.Total,
		Page:        &p.page,
		TotalPages:  &pages,
		UnreadCount: &page.Unread,
	})
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.Inbox.MarkRead(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", n)
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Inbox.MarkAllRead(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "all notifications marked as read", map[string]int64{"updatedCount": updated})
}

// Delete handles DELETE /api/notifications/{id}.
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.Inbox.Delete(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "notification deleted", nil)
}
