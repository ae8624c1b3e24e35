package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/audit"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/settings"
	"volunteerhub.org/internal/store/memory"
	"volunteerhub.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *memory.Store
	t       *testing.T
}

func newTestAPI(t *testing.T, opts ...Option) *apiClient {
	t.Helper()

	t.Setenv("VHUB_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	store := memory.New()
	changes := stream.New()

	authSvc, err := auth.NewService(store)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	activities, err := activity.NewService(store, changes)
	if err != nil {
		t.Fatalf("activity service: %v", err)
	}
	settingsSvc, err := settings.NewService(store, changes)
	if err != nil {
		t.Fatalf("settings service: %v", err)
	}
	watcher := settings.NewWatcher(settingsSvc)
	recorder := audit.NewRecorder(store)

	// A generous default bucket keeps unrelated tests clear of 429s; tests
	// exercising the limiter pass their own option, which wins.
	allOpts := append([]Option{WithRateLimit(1000, 1000)}, opts...)
	api := New(ReadyProbe{}, "test", authSvc, activities, settingsSvc, watcher, recorder, changes, allOpts...)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// signUp registers a user and returns its profile id.
func (c *apiClient) signUp(name, email, role string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/signup", map[string]any{
		"name":     name,
		"email":    email,
		"password": "pa55word",
		"role":     role,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected signup status: %d", resp.StatusCode)
	}
	var profile auth.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		c.t.Fatalf("decode signup response: %v", err)
	}
	return profile.ID
}

func (c *apiClient) obtainToken(email string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": "pa55word",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

// adminToken creates a user and promotes it directly in the store; admins
// cannot self-register through the public API.
func (c *apiClient) adminToken() string {
	c.t.Helper()
	id := c.signUp("Platform Admin", "admin@example.com", "VOLUNTEER")
	if _, err := c.store.UpdateProfileRole(context.Background(), id, auth.RoleAdmin); err != nil {
		c.t.Fatalf("promote admin: %v", err)
	}
	return c.obtainToken("admin@example.com")
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfoArePublic(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}

	resp2 := c.get("/v1/info", nil, nil)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("info status: %d", resp2.StatusCode)
	}
	body := decode[map[string]any](t, resp2)
	if body["name"] != "volunteerhub-api" {
		t.Fatalf("unexpected service name: %v", body["name"])
	}
}

func TestSignUpTokenMeFlow(t *testing.T) {
	c := newTestAPI(t)

	id := c.signUp("Dana", "dana@example.com", "NGO")
	token := c.obtainToken("dana@example.com")

	resp := c.get("/v1/auth/me", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status: %d", resp.StatusCode)
	}
	me := decode[meResponse](t, resp)
	if me.UserID != id {
		t.Fatalf("me user %s, want %s", me.UserID, id)
	}
	if me.Role != "NGO" {
		t.Fatalf("me role %s, want NGO", me.Role)
	}
}

func TestMeRequiresToken(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/auth/me", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestActivityRegistrationFlow(t *testing.T) {
	c := newTestAPI(t)

	c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")
	c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")

	resp := c.post("/v1/activities", map[string]any{
		"title":    "Beach cleanup",
		"location": "Pier 4",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 1,
	}, bearerHeader(ngoToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create activity status: %d", resp.StatusCode)
	}
	act := decode[activity.Activity](t, resp)

	// Volunteers cannot publish activities.
	resp = c.post("/v1/activities", map[string]any{
		"title":    "Rogue event",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 5,
	}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for volunteer create, got %d", resp.StatusCode)
	}

	resp = c.post("/v1/activities/"+act.ID+"/registrations", nil, bearerHeader(volToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	reg := decode[activity.Registration](t, resp)
	if reg.Status != activity.RegistrationPending {
		t.Fatalf("new registration status %s, want pending", reg.Status)
	}

	// Capacity 1 is now exhausted.
	c.signUp("Second", "second@example.com", "VOLUNTEER")
	secondToken := c.obtainToken("second@example.com")
	resp = c.post("/v1/activities/"+act.ID+"/registrations", nil, bearerHeader(secondToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on full activity, got %d", resp.StatusCode)
	}

	// The owner confirms the registration.
	resp = c.put("/v1/registrations/"+reg.ID+"/status", map[string]any{"status": "confirmed"}, bearerHeader(ngoToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status: %d", resp.StatusCode)
	}
	updated := decode[activity.Registration](t, resp)
	if updated.Status != activity.RegistrationConfirmed {
		t.Fatalf("status %s, want confirmed", updated.Status)
	}

	// The volunteer may cancel its own registration but not confirm it.
	resp = c.put("/v1/registrations/"+reg.ID+"/status", map[string]any{"status": "confirmed"}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for volunteer confirm, got %d", resp.StatusCode)
	}
	resp = c.put("/v1/registrations/"+reg.ID+"/status", map[string]any{"status": "cancelled"}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for volunteer cancel, got %d", resp.StatusCode)
	}
}

func TestRegistrationListingAndExportOwnership(t *testing.T) {
	c := newTestAPI(t)

	c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")
	c.signUp("Other NGO", "other@example.com", "NGO")
	otherToken := c.obtainToken("other@example.com")
	c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")

	resp := c.post("/v1/activities", map[string]any{
		"title":    "Tree planting",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 10,
	}, bearerHeader(ngoToken))
	act := decode[activity.Activity](t, resp)

	resp = c.post("/v1/activities/"+act.ID+"/registrations", nil, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}

	// Another NGO cannot read the registrations.
	resp = c.get("/v1/activities/"+act.ID+"/registrations", nil, bearerHeader(otherToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign NGO, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/activities/"+act.ID+"/registrations", nil, bearerHeader(ngoToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner list status: %d", resp.StatusCode)
	}
	listing := decode[listResponse[*activity.Registration]](t, resp)
	if len(listing.Items) != 1 {
		t.Fatalf("expected one registration, got %d", len(listing.Items))
	}

	resp = c.get("/v1/activities/"+act.ID+"/registrations/export", nil, bearerHeader(ngoToken))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected export content type: %s", ct)
	}
}

func TestReviewModerationFlow(t *testing.T) {
	c := newTestAPI(t)

	adminToken := c.adminToken()
	c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")
	c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")

	resp := c.post("/v1/activities", map[string]any{
		"title":    "Soup kitchen",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 10,
	}, bearerHeader(ngoToken))
	act := decode[activity.Activity](t, resp)

	resp = c.post("/v1/activities/"+act.ID+"/reviews", map[string]any{
		"rating":  5,
		"comment": "Great cause",
	}, bearerHeader(volToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit review status: %d", resp.StatusCode)
	}
	review := decode[activity.Review](t, resp)

	// Pending reviews are invisible on the public listing.
	resp = c.get("/v1/activities/"+act.ID+"/reviews", nil, bearerHeader(volToken))
	listing := decode[listResponse[*activity.Review]](t, resp)
	if len(listing.Items) != 0 {
		t.Fatalf("pending review leaked to public listing")
	}

	// Volunteers and foreign NGOs cannot moderate.
	resp = c.put("/v1/reviews/"+review.ID+"/status", map[string]any{"status": "approved"}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for volunteer moderation, got %d", resp.StatusCode)
	}
	c.signUp("Other NGO", "other@example.com", "NGO")
	otherToken := c.obtainToken("other@example.com")
	resp = c.put("/v1/reviews/"+review.ID+"/status", map[string]any{"status": "approved"}, bearerHeader(otherToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign NGO moderation, got %d", resp.StatusCode)
	}

	// The owning NGO approves its own activity's review.
	resp = c.put("/v1/reviews/"+review.ID+"/status", map[string]any{"status": "approved"}, bearerHeader(ngoToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner moderation status: %d", resp.StatusCode)
	}
	approved := decode[activity.Review](t, resp)
	if approved.Status != activity.ReviewApproved {
		t.Fatalf("status %s, want approved", approved.Status)
	}

	resp = c.get("/v1/activities/"+act.ID+"/reviews", nil, bearerHeader(volToken))
	listing = decode[listResponse[*activity.Review]](t, resp)
	if len(listing.Items) != 1 {
		t.Fatalf("expected one approved review, got %d", len(listing.Items))
	}

	// Admins moderate any activity's reviews.
	resp = c.put("/v1/reviews/"+review.ID+"/status", map[string]any{"status": "rejected"}, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin moderation status: %d", resp.StatusCode)
	}
	resp = c.get("/v1/activities/"+act.ID+"/reviews", nil, bearerHeader(volToken))
	listing = decode[listResponse[*activity.Review]](t, resp)
	if len(listing.Items) != 0 {
		t.Fatalf("rejected review still public, got %d items", len(listing.Items))
	}
}

func TestAdminEndpoints(t *testing.T) {
	c := newTestAPI(t)

	adminToken := c.adminToken()
	volID := c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")

	// Volunteers are rejected on the admin surface.
	resp := c.get("/v1/admin/users", nil, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for volunteer, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/admin/users", nil, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin users status: %d", resp.StatusCode)
	}
	listing := decode[listResponse[*auth.Profile]](t, resp)
	if len(listing.Items) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(listing.Items))
	}

	resp = c.put("/v1/admin/users/"+volID+"/role", map[string]any{"role": "NGO"}, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role change status: %d", resp.StatusCode)
	}
	profile := decode[auth.Profile](t, resp)
	if profile.Role != auth.RoleNGO {
		t.Fatalf("role %s, want NGO", profile.Role)
	}

	// The promoted user gains NGO access on its existing token.
	resp = c.post("/v1/activities", map[string]any{
		"title":    "New event",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 5,
	}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected promoted user to create activity, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/admin/stats", nil, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status: %d", resp.StatusCode)
	}
	stats := decode[adminStatsResponse](t, resp)
	if stats.TotalUsers != 2 || stats.TotalActivities != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	resp = c.get("/v1/admin/audit", nil, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit status: %d", resp.StatusCode)
	}
	auditListing := decode[map[string]any](t, resp)
	if items, ok := auditListing["items"].([]any); !ok || len(items) == 0 {
		t.Fatalf("expected audit entries, got %v", auditListing["items"])
	}
}

func TestMaintenanceModeGatesNonAdmins(t *testing.T) {
	c := newTestAPI(t)

	adminToken := c.adminToken()
	c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")

	// Settings reads are public before sign-in.
	resp := c.get("/v1/settings", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings get status: %d", resp.StatusCode)
	}

	// Volunteers cannot flip maintenance mode.
	resp = c.put("/v1/settings", map[string]any{"maintenance_mode": true}, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for volunteer settings update, got %d", resp.StatusCode)
	}

	resp = c.put("/v1/settings", map[string]any{
		"maintenance_mode":    true,
		"maintenance_message": "back at noon",
	}, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings update status: %d", resp.StatusCode)
	}

	// Volunteer traffic is now parked with the configured message.
	resp = c.get("/v1/activities", nil, bearerHeader(volToken))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 during maintenance, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "back at noon" {
		t.Fatalf("unexpected maintenance message: %v", body["error"])
	}

	// Admins keep working, and sign-in stays reachable.
	resp = c.get("/v1/activities", nil, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected admin to pass maintenance, got %d", resp.StatusCode)
	}
	c.obtainToken("vera@example.com")

	// Switching maintenance off restores service.
	resp = c.put("/v1/settings", map[string]any{"maintenance_mode": false}, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings update status: %d", resp.StatusCode)
	}
	resp = c.get("/v1/activities", nil, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after maintenance, got %d", resp.StatusCode)
	}
}

func TestSignUpRejectsAdminRole(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/signup", map[string]any{
		"name":     "Eve",
		"email":    "eve@example.com",
		"password": "pa55word",
		"role":     "ADMIN",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for admin signup, got %d", resp.StatusCode)
	}
}

func TestActivityBrowsingIsPublic(t *testing.T) {
	c := newTestAPI(t)

	c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")
	resp := c.post("/v1/activities", map[string]any{
		"title":    "Park cleanup",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 5,
	}, bearerHeader(ngoToken))
	act := decode[activity.Activity](t, resp)

	// Listings, detail pages and approved reviews need no token.
	resp = c.get("/v1/activities", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous list status: %d", resp.StatusCode)
	}
	listing := decode[listResponse[*activity.Activity]](t, resp)
	if len(listing.Items) != 1 {
		t.Fatalf("expected one activity, got %d", len(listing.Items))
	}

	resp = c.get("/v1/activities/"+act.ID, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous detail status: %d", resp.StatusCode)
	}

	resp = c.get("/v1/activities/"+act.ID+"/reviews", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous reviews status: %d", resp.StatusCode)
	}

	// Registration data stays behind authentication.
	resp = c.get("/v1/activities/"+act.ID+"/registrations", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous registrations, got %d", resp.StatusCode)
	}

	// Writes on the public surface still need a token.
	resp = c.post("/v1/activities", map[string]any{
		"title":    "Anonymous event",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 5,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous create, got %d", resp.StatusCode)
	}
}

func TestRateLimitOptionApplies(t *testing.T) {
	c := newTestAPI(t, WithRateLimit(1, 1))

	resp := c.get("/healthz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status: %d", resp.StatusCode)
	}
	resp = c.get("/healthz", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 with burst 1, got %d", resp.StatusCode)
	}
}

func TestReviewEditAndDelete(t *testing.T) {
	c := newTestAPI(t)

	c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")
	c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	volToken := c.obtainToken("vera@example.com")
	c.signUp("Mallory", "mallory@example.com", "VOLUNTEER")
	otherToken := c.obtainToken("mallory@example.com")

	resp := c.post("/v1/activities", map[string]any{
		"title":    "Food drive",
		"date":     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"capacity": 10,
	}, bearerHeader(ngoToken))
	act := decode[activity.Activity](t, resp)

	resp = c.post("/v1/activities/"+act.ID+"/reviews", map[string]any{
		"rating":  4,
		"comment": "Well organized",
	}, bearerHeader(volToken))
	review := decode[activity.Review](t, resp)

	resp = c.put("/v1/reviews/"+review.ID+"/status", map[string]any{"status": "approved"}, bearerHeader(ngoToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status: %d", resp.StatusCode)
	}

	// Another volunteer cannot touch the review.
	resp = c.put("/v1/reviews/"+review.ID, map[string]any{"rating": 1}, bearerHeader(otherToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign edit, got %d", resp.StatusCode)
	}

	// The author's edit returns the review to moderation.
	resp = c.put("/v1/reviews/"+review.ID, map[string]any{
		"rating":  5,
		"comment": "Even better than I thought",
	}, bearerHeader(volToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status: %d", resp.StatusCode)
	}
	edited := decode[activity.Review](t, resp)
	if edited.Rating != 5 || edited.Status != activity.ReviewPending {
		t.Fatalf("edited review %+v, want rating 5 back in pending", edited)
	}
	resp = c.get("/v1/activities/"+act.ID+"/reviews", nil, nil)
	listing := decode[listResponse[*activity.Review]](t, resp)
	if len(listing.Items) != 0 {
		t.Fatalf("edited review should leave the public listing, got %d items", len(listing.Items))
	}

	resp = c.do(http.MethodDelete, "/v1/reviews/"+review.ID, nil, bearerHeader(otherToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign delete, got %d", resp.StatusCode)
	}
	resp = c.do(http.MethodDelete, "/v1/reviews/"+review.ID, nil, bearerHeader(volToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %d", resp.StatusCode)
	}

	resp = c.get("/v1/reviews", nil, bearerHeader(volToken))
	mine := decode[listResponse[*activity.Review]](t, resp)
	if len(mine.Items) != 0 {
		t.Fatalf("deleted review still listed, got %d items", len(mine.Items))
	}
}

func TestNGOVerificationWorkflow(t *testing.T) {
	c := newTestAPI(t)

	adminToken := c.adminToken()
	ngoID := c.signUp("Green NGO", "ngo@example.com", "NGO")
	ngoToken := c.obtainToken("ngo@example.com")

	// NGO sign-ups start in the verification queue.
	resp := c.get("/v1/auth/me", nil, bearerHeader(ngoToken))
	me := decode[meResponse](t, resp)
	if me.Profile == nil || me.Profile.VerificationStatus != auth.VerificationPending {
		t.Fatalf("expected pending verification, got %+v", me.Profile)
	}
	if me.Verified {
		t.Fatal("pending NGO must not report as verified")
	}

	// NGOs cannot read or decide the queue.
	resp = c.get("/v1/admin/verifications", nil, bearerHeader(ngoToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for NGO on queue, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/admin/verifications", nil, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("queue status: %d", resp.StatusCode)
	}
	queue := decode[listResponse[*auth.Profile]](t, resp)
	if len(queue.Items) != 1 || queue.Items[0].ID != ngoID {
		t.Fatalf("expected the NGO in the queue, got %+v", queue.Items)
	}

	resp = c.put("/v1/admin/users/"+ngoID+"/verification", map[string]any{
		"status": "VERIFIED",
		"notes":  "documents checked",
	}, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verification decision status: %d", resp.StatusCode)
	}
	profile := decode[auth.Profile](t, resp)
	if profile.VerificationStatus != auth.VerificationVerified || profile.VerifiedAt == nil {
		t.Fatalf("unexpected verification result: %+v", profile)
	}

	resp = c.get("/v1/auth/me", nil, bearerHeader(ngoToken))
	me = decode[meResponse](t, resp)
	if !me.Verified {
		t.Fatal("verified NGO must report as verified")
	}

	resp = c.get("/v1/admin/verifications", nil, bearerHeader(adminToken))
	queue = decode[listResponse[*auth.Profile]](t, resp)
	if len(queue.Items) != 0 {
		t.Fatalf("queue should be empty after the decision, got %d", len(queue.Items))
	}

	// Volunteers are never verification targets.
	volID := c.signUp("Vera", "vera@example.com", "VOLUNTEER")
	resp = c.put("/v1/admin/users/"+volID+"/verification", map[string]any{
		"status": "VERIFIED",
	}, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for volunteer verification, got %d", resp.StatusCode)
	}
}

func TestDuplicateSignUpConflicts(t *testing.T) {
	c := newTestAPI(t)

	c.signUp("Dana", "dana@example.com", "VOLUNTEER")
	resp := c.post("/v1/auth/signup", map[string]any{
		"name":     "Other",
		"email":    "dana@example.com",
		"password": "pa55word",
		"role":     "VOLUNTEER",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}
