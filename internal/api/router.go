package api

import (
	"log/slog"
	"net/http"

	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/service"
)

// Options configure NewRouter. All fields are optional.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Images  ImageSource
	// Debug adds the underlying error to 500 responses.
	Debug bool
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errs := &errorWriter{logger: logger, debug: opts.Debug}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{Accounts: svc.Accounts, errorWriter: errs}
	itemsHandler := &ItemsHandler{Items: svc.Items, errorWriter: errs}
	imagesHandler := &ImagesHandler{Images: opts.Images, errorWriter: errs}
	claimsHandler := &ClaimsHandler{Claims: svc.Claims, errorWriter: errs}
	notificationsHandler := &NotificationsHandler{Inbox: svc.Inbox, errorWriter: errs}
	adminHandler := &AdminHandler{Moderation: svc.Moderation, errorWriter: errs}

	authMW := AuthMiddleware(svc.Accounts, errs)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", opts.Metrics.Handler())
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/lost", itemsHandler.ListType(model.ItemTypeLost))
	mux.HandleFunc("GET /api/items/found", itemsHandler.ListType(model.ItemTypeFound))
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/images/{id}", imagesHandler.Get)

	// Account.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/profile", authed(authHandler.UpdateProfile))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Items: any authenticated user posts, owners edit.
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/mine", authed(itemsHandler.Mine))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))

	// Claims.
	mux.Handle("POST /api/claims/item/{itemId}", authed(claimsHandler.Submit))
	mux.Handle("GET /api/claims/item/{itemId}", authed(claimsHandler.ByItem))
	mux.Handle("GET /api/claims/mine", authed(claimsHandler.Mine))
	mux.Handle("GET /api/claims/{id}", authed(claimsHandler.Get))
	mux.Handle("PUT /api/claims/{id}/approve", authed(claimsHandler.Approve))
	mux.Handle("PUT /api/claims/{id}/reject", authed(claimsHandler.Reject))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("PUT /api/notifications/read-all", authed(notificationsHandler.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))
	mux.Handle("DELETE /api/notifications/{id}", authed(notificationsHandler.Delete))

	// Admin.
	mux.Handle("GET /api/admin/users", admin(adminHandler.Users))
	mux.Handle("PUT /api/admin/users/{id}/block", admin(adminHandler.BlockUser))
	mux.Handle("PUT /api/admin/users/{id}/unblock", admin(adminHandler.UnblockUser))
	mux.Handle("GET /api/admin/items", admin(adminHandler.Items))
	mux.Handle("PUT /api/admin/items/{id}/approve", admin(adminHandler.ApproveItem))
	mux.Handle("PUT /api/admin/items/{id}/reject", admin(adminHandler.RejectItem))
	mux.Handle("DELETE /api/admin/items/{id}", admin(adminHandler.DeleteItem))
	mux.Handle("GET /api/admin/stats", admin(adminHandler.Stats))

	return LoggingMiddleware(logger, opts.Metrics)(mux)
}
