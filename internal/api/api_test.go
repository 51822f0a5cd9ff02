package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/campuslost/lostfound/internal/auth"
	"github.com/campuslost/lostfound/internal/blob"
	"github.com/campuslost/lostfound/internal/db"
	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/service"
	"github.com/campuslost/lostfound/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	t          *testing.T
	server     *httptest.Server
	adminToken string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	images := &blob.SQLiteStore{DB: database}

	svc, err := service.New(database, service.Options{
		Blobs:     images,
		Logger:    logger,
		JWTSecret: testJWTSecret,
	})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}

	router := NewRouter(svc, Options{Logger: logger, Metrics: metrics.New(), Images: images})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := auth.HashPassword("password")
	if _, err := store.CreateUser(ctx, database, "Admin", "admin@campus.edu", hash, model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	env := &testEnv{t: t, server: server}
	env.adminToken = env.login("admin@campus.edu", "password")
	return env
}

// envelopeOf is the decoded response body with Data left raw.
type envelopeOf struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Data        json.RawMessage `json:"data"`
	Count       *int            `json:"count"`
	Total       *int            `json:"total"`
	TotalPages  *int            `json:"totalPages"`
	UnreadCount *int            `json:"unreadCount"`
}

func (e *testEnv) do(method, path, token string, body any) (*http.Response, envelopeOf) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		e.t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) (*http.Response, envelopeOf) {
	e.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var env envelopeOf
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		json.NewDecoder(resp.Body).Decode(&env)
	}
	return resp, env
}

func (e *testEnv) expect(resp *http.Response, want int) {
	e.t.Helper()
	if resp.StatusCode != want {
		e.t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	resp, env := e.do("POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	e.expect(resp, http.StatusOK)
	var session struct {
		Token string `json:"token"`
	}
	json.Unmarshal(env.Data, &session)
	if session.Token == "" {
		e.t.Fatal("empty token from login")
	}
	return session.Token
}

func (e *testEnv) register(name, email string) (string, int64) {
	e.t.Helper()
	resp, env := e.do("POST", "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	e.expect(resp, http.StatusCreated)
	var session struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	json.Unmarshal(env.Data, &session)
	return session.Token, session.User.ID
}

func (e *testEnv) createItem(token, title, itemType string) model.Item {
	e.t.Helper()
	resp, env := e.do("POST", "/api/items", token, map[string]string{
		"title":       title,
		"description": "Left behind after class",
		"category":    "Accessories",
		"location":    "Library",
		"type":        itemType,
	})
	e.expect(resp, http.StatusCreated)
	var item model.Item
	json.Unmarshal(env.Data, &item)
	return item
}

func (e *testEnv) approve(itemID int64) {
	e.t.Helper()
	resp, _ := e.do("PUT", "/api/admin/items/"+itoa(itemID)+"/approve", e.adminToken, nil)
	e.expect(resp, http.StatusOK)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from health, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	resp, err = http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "lostfound_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp, body := env.do("POST", "/api/auth/login", "", map[string]string{"email": "admin@campus.edu", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	if body.Success || body.Message != "invalid credentials" {
		t.Errorf("unexpected body: %+v", body)
	}

	resp, _ = env.do("POST", "/api/auth/register", "", map[string]string{
		"name": "Dup", "email": "ADMIN@campus.edu", "password": "secret1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := env.do("POST", "/api/items", "", map[string]string{"title": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = env.do("GET", "/api/notifications", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", resp.StatusCode)
	}

	// Public browsing needs no token.
	resp, _ = env.do("GET", "/api/items", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for public listing, got %d", resp.StatusCode)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.register("Alice", "alice@campus.edu")

	for _, path := range []string{"/api/admin/users", "/api/admin/items", "/api/admin/stats"} {
		resp, _ := env.do("GET", path, token, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 for user on %s, got %d", path, resp.StatusCode)
		}
	}

	resp, body := env.do("GET", "/api/admin/stats", env.adminToken, nil)
	env.expect(resp, http.StatusOK)
	var stats model.Stats
	json.Unmarshal(body.Data, &stats)
	if stats.Users.Total != 2 || stats.Users.Admins != 1 {
		t.Errorf("unexpected stats: %+v", stats.Users)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	alice, _ := env.register("Alice", "alice@campus.edu")
	bob, _ := env.register("Bob", "bob@campus.edu")

	item := env.createItem(alice, "Red Umbrella", model.ItemTypeFound)
	if item.IsApproved || item.Status != model.ItemStatusActive {
		t.Fatalf("new item should be pending and active: %+v", item)
	}

	// Unapproved items are hidden from the public list.
	resp, body := env.do("GET", "/api/items", "", nil)
	env.expect(resp, http.StatusOK)
	if *body.Total != 0 {
		t.Errorf("expected 0 public items before approval, got %d", *body.Total)
	}

	env.approve(item.ID)

	resp, body = env.do("GET", "/api/items/found?q=umbrella", "", nil)
	env.expect(resp, http.StatusOK)
	if *body.Total != 1 || *body.TotalPages != 1 {
		t.Errorf("expected 1 found item on 1 page, got total=%d pages=%d", *body.Total, *body.TotalPages)
	}
	resp, body = env.do("GET", "/api/items/lost", "", nil)
	env.expect(resp, http.StatusOK)
	if *body.Total != 0 {
		t.Errorf("expected 0 lost items, got %d", *body.Total)
	}

	// Only the owner may edit.
	path := "/api/items/" + itoa(item.ID)
	resp, _ = env.do("PUT", path, bob, map[string]string{"title": "Mine now"})
	env.expect(resp, http.StatusForbidden)

	resp, body = env.do("PUT", path, alice, map[string]string{"title": "Large Red Umbrella"})
	env.expect(resp, http.StatusOK)
	var updated model.Item
	json.Unmarshal(body.Data, &updated)
	if updated.Title != "Large Red Umbrella" || updated.Location != "Library" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	resp, body = env.do("GET", "/api/items/mine", alice, nil)
	env.expect(resp, http.StatusOK)
	if *body.Count != 1 {
		t.Errorf("expected 1 own item, got %d", *body.Count)
	}

	resp, _ = env.do("POST", "/api/items", alice, map[string]string{
		"title": "Thing", "description": "d", "category": "Furniture", "location": "x", "type": "lost",
	})
	env.expect(resp, http.StatusBadRequest)

	resp, _ = env.do("DELETE", path, bob, nil)
	env.expect(resp, http.StatusForbidden)
	resp, _ = env.do("DELETE", path, alice, nil)
	env.expect(resp, http.StatusOK)
	resp, _ = env.do("GET", path, "", nil)
	env.expect(resp, http.StatusNotFound)
}

func TestItemImageUpload(t *testing.T) {
	env := setupTestServer(t)
	alice, _ := env.register("Alice", "alice@campus.edu")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"title": "Keys", "description": "Three keys", "category": "Keys", "location": "Gym", "type": "found",
	} {
		form.WriteField(k, v)
	}
	part, _ := form.CreateFormFile("image", "keys.png")
	png.Encode(part, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	form.Close()

	req, _ := http.NewRequest("POST", env.server.URL+"/api/items", &body)
	req.Header.Set("Authorization", "Bearer "+alice)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, envBody := env.send(req)
	env.expect(resp, http.StatusCreated)

	var item model.Item
	json.Unmarshal(envBody.Data, &item)
	if !strings.HasPrefix(item.ImageURL, blob.URLPrefix) {
		t.Fatalf("expected image url, got %q", item.ImageURL)
	}

	imgResp, err := http.Get(env.server.URL + item.ImageURL)
	if err != nil {
		t.Fatalf("fetching image: %v", err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK || imgResp.Header.Get("Content-Type") == "" {
		t.Errorf("expected image, got %d %q", imgResp.StatusCode, imgResp.Header.Get("Content-Type"))
	}

	missing, _ := http.Get(env.server.URL + "/api/images/not-a-uuid")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown image, got %d", missing.StatusCode)
	}
}

func TestMatchNotificationFlow(t *testing.T) {
	env := setupTestServer(t)
	finder, _ := env.register("Finder", "finder@campus.edu")
	owner, _ := env.register("Owner", "owner@campus.edu")

	found := env.createItem(finder, "Red Umbrella", model.ItemTypeFound)
	lost := env.createItem(owner, "umbrella", model.ItemTypeLost)
	env.approve(lost.ID)
	env.approve(found.ID)

	resp, body := env.do("GET", "/api/notifications", owner, nil)
	env.expect(resp, http.StatusOK)
	if *body.Total != 1 || *body.UnreadCount != 1 {
		t.Fatalf("expected 1 unread notification, got total=%d unread=%d", *body.Total, *body.UnreadCount)
	}
	var notes []model.Notification
	json.Unmarshal(body.Data, &notes)
	if notes[0].ItemID != found.ID {
		t.Errorf("expected notification about found item %d, got %d", found.ID, notes[0].ItemID)
	}

	// Re-approval does not notify again.
	env.approve(found.ID)
	_, body = env.do("GET", "/api/notifications", owner, nil)
	if *body.Total != 1 {
		t.Errorf("expected still 1 notification, got %d", *body.Total)
	}

	notePath := "/api/notifications/" + itoa(notes[0].ID) + "/read"
	resp, _ = env.do("PUT", notePath, finder, nil)
	env.expect(resp, http.StatusForbidden)
	resp, _ = env.do("PUT", notePath, owner, nil)
	env.expect(resp, http.StatusOK)

	resp, body = env.do("PUT", "/api/notifications/read-all", owner, nil)
	env.expect(resp, http.StatusOK)
	var res struct {
		UpdatedCount int64 `json:"updatedCount"`
	}
	json.Unmarshal(body.Data, &res)
	if res.UpdatedCount != 0 {
		t.Errorf("expected 0 updated, got %d", res.UpdatedCount)
	}
}

func TestClaimsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	owner, _ := env.register("Olivia", "olivia@campus.edu")
	carl, _ := env.register("Carl", "carl@campus.edu")

	item := env.createItem(owner, "Black Wallet", model.ItemTypeFound)
	claimPath := "/api/claims/item/" + itoa(item.ID)

	resp, _ := env.do("POST", claimPath, owner, map[string]string{"proofMessage": "It is mine, I posted it"})
	env.expect(resp, http.StatusForbidden)

	resp, _ = env.do("POST", claimPath, carl, map[string]string{"proofMessage": "123456789"})
	env.expect(resp, http.StatusBadRequest)

	resp, body := env.do("POST", claimPath, carl, map[string]string{"proofMessage": "My student card is inside"})
	env.expect(resp, http.StatusCreated)
	var claim model.Claim
	json.Unmarshal(body.Data, &claim)

	resp, _ = env.do("POST", claimPath, carl, map[string]string{"proofMessage": "My student card is inside"})
	env.expect(resp, http.StatusConflict)

	resp, body = env.do("GET", claimPath, owner, nil)
	env.expect(resp, http.StatusOK)
	if *body.Count != 1 {
		t.Errorf("expected 1 claim on item, got %d", *body.Count)
	}
	resp, _ = env.do("GET", claimPath, carl, nil)
	env.expect(resp, http.StatusForbidden)

	approvePath := "/api/claims/" + itoa(claim.ID) + "/approve"
	resp, _ = env.do("PUT", approvePath, carl, nil)
	env.expect(resp, http.StatusForbidden)
	resp, body = env.do("PUT", approvePath, owner, nil)
	env.expect(resp, http.StatusOK)
	json.Unmarshal(body.Data, &claim)
	if claim.Status != model.ClaimStatusApproved || claim.Item.Status != model.ItemStatusResolved {
		t.Errorf("expected approved claim on resolved item, got %s / %s", claim.Status, claim.Item.Status)
	}

	resp, _ = env.do("PUT", approvePath, owner, nil)
	env.expect(resp, http.StatusConflict)
	resp, _ = env.do("PUT", "/api/claims/"+itoa(claim.ID)+"/reject", owner, map[string]string{"reason": "changed my mind"})
	env.expect(resp, http.StatusConflict)

	resp, body = env.do("GET", "/api/claims/mine", carl, nil)
	env.expect(resp, http.StatusOK)
	if *body.Count != 1 {
		t.Errorf("expected 1 own claim, got %d", *body.Count)
	}

	resp, _ = env.do("PUT", "/api/claims/999/approve", owner, nil)
	env.expect(resp, http.StatusNotFound)
}

func TestBlockedUserAndLogout(t *testing.T) {
	env := setupTestServer(t)
	alice, aliceID := env.register("Alice", "alice@campus.edu")

	resp, _ := env.do("GET", "/api/auth/me", alice, nil)
	env.expect(resp, http.StatusOK)

	resp, _ = env.do("PUT", "/api/admin/users/"+itoa(aliceID)+"/block", env.adminToken, nil)
	env.expect(resp, http.StatusOK)

	resp, _ = env.do("GET", "/api/auth/me", alice, nil)
	env.expect(resp, http.StatusForbidden)
	resp, _ = env.do("POST", "/api/auth/login", "", map[string]string{"email": "alice@campus.edu", "password": "secret1"})
	env.expect(resp, http.StatusForbidden)

	resp, _ = env.do("PUT", "/api/admin/users/"+itoa(aliceID)+"/unblock", env.adminToken, nil)
	env.expect(resp, http.StatusOK)

	resp, _ = env.do("POST", "/api/auth/logout", alice, nil)
	env.expect(resp, http.StatusOK)
	resp, _ = env.do("GET", "/api/auth/me", alice, nil)
	env.expect(resp, http.StatusUnauthorized)

	resp, body := env.do("GET", "/api/admin/users?blocked=false&search=alice", env.adminToken, nil)
	env.expect(resp, http.StatusOK)
	if *body.Total != 1 {
		t.Errorf("expected 1 matching user, got %d", *body.Total)
	}
}
