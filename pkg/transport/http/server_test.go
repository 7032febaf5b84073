package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/gearshop/gearshop"
	"github.com/gearshop/gearshop/pkg/crypto"
	"github.com/gearshop/gearshop/pkg/storage/memory"
)

type testServer struct {
	handler http.Handler
	client  *gearshop.Client
}

func newTestServer(t *testing.T, options Options) *testServer {
	t.Helper()

	client, err := gearshop.New(gearshop.Config{
		Store:  memory.NewAdapter(),
		Hasher: crypto.NewBcryptHasher(crypto.BcryptOptions{Cost: 4}),
		Tokens: gearshop.TokenConfig{
			Secret: strings.Repeat("s", 32),
			TTL:    time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &testServer{
		handler: NewHandler(client, options),
		client:  client,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (ts *testServer) register(t *testing.T, username string) gearshop.Account {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "Password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	return decodeResponse[gearshop.Account](t, rec)
}

func (ts *testServer) login(t *testing.T, email string) gearshop.LoginResult {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "Password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	return decodeResponse[gearshop.LoginResult](t, rec)
}

func (ts *testServer) superToken(t *testing.T) string {
	t.Helper()

	if _, err := ts.client.EnsureSuperAdmin(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "superadmin@gmail.com",
		"password": "SuperAdmin123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin login: status %d body %s", rec.Code, rec.Body.String())
	}
	return decodeResponse[gearshop.LoginResult](t, rec).Token
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts := newTestServer(t, Options{})

	account := ts.register(t, "alice")
	if account.Role != "client" {
		t.Fatalf("role = %q, want client", account.Role)
	}

	result := ts.login(t, "alice@example.com")
	if result.Token == "" {
		t.Fatal("empty token")
	}

	rec := ts.do(t, http.MethodGet, "/api/users/me", result.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", rec.Code, rec.Body.String())
	}
	me := decodeResponse[gearshop.Account](t, rec)
	if me.ID != account.ID {
		t.Fatalf("me.id = %q, want %q", me.ID, account.ID)
	}

	// Duplicate registration conflicts.
	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "Password123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", rec.Code)
	}

	// Wrong password is a 401, same as a missing account.
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", rec.Code)
	}
}

func TestAuthenticatedRoutesRejectMissingToken(t *testing.T) {
	ts := newTestServer(t, Options{})

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/users/all"},
		{http.MethodPatch, "/api/users/role"},
		{http.MethodPost, "/api/products/"},
		{http.MethodGet, "/api/products/mine"},
		{http.MethodDelete, "/api/products/purge"},
	} {
		rec := ts.do(t, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, want 401", tc.method, tc.path, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/users/me", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", rec.Code)
	}
}

func TestRoleEndpointStatusMapping(t *testing.T) {
	ts := newTestServer(t, Options{})

	superToken := ts.superToken(t)
	bob := ts.register(t, "bob")
	bobToken := ts.login(t, "bob@example.com").Token

	// A client caller is forbidden.
	rec := ts.do(t, http.MethodPatch, "/api/users/role", bobToken, map[string]any{
		"userId": bob.ID, "role": "admin",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client caller: status %d, want 403", rec.Code)
	}

	// Unknown target role is a 400.
	rec = ts.do(t, http.MethodPatch, "/api/users/role", superToken, map[string]any{
		"userId": bob.ID, "role": "super_admin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("super_admin target: status %d, want 400", rec.Code)
	}

	// Missing target is a 404.
	rec = ts.do(t, http.MethodPatch, "/api/users/role", superToken, map[string]any{
		"userId": "missing", "role": "admin",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing target: status %d, want 404", rec.Code)
	}

	// Promotion succeeds and the old token sees the new role immediately.
	rec = ts.do(t, http.MethodPatch, "/api/users/role", superToken, map[string]any{
		"userId": bob.ID, "role": "admin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("promote: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodGet, "/api/users/all", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list as fresh admin: status %d", rec.Code)
	}
}

func TestProductEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})

	ts.register(t, "owner")
	ownerToken := ts.login(t, "owner@example.com").Token
	ts.register(t, "other")
	otherToken := ts.login(t, "other@example.com").Token

	create := map[string]any{
		"name":        "Split Keyboard",
		"description": "ergonomic",
		"price":       199.0,
		"category":    "keyboards",
		"image":       "https://img.example/split",
	}

	rec := ts.do(t, http.MethodPost, "/api/products/", ownerToken, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	product := decodeResponse[gearshop.Product](t, rec)

	// Disallowed category is a 400.
	bad := map[string]any{
		"name": "Wall Clock", "description": "d", "price": 10.0,
		"category": "clocks", "image": "i",
	}
	rec = ts.do(t, http.MethodPost, "/api/products/", ownerToken, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("disallowed category: status %d", rec.Code)
	}

	// Public reads need no token.
	rec = ts.do(t, http.MethodGet, "/api/products/"+product.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/products/sort?sortBy=price-low-to-high", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sorted list: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/products/search?search=split&sort=name-a-to-z", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d", rec.Code)
	}
	results := decodeResponse[[]gearshop.Product](t, rec)
	if len(results) != 1 {
		t.Fatalf("search results = %d, want 1", len(results))
	}

	// A non-owner may not mutate.
	rec = ts.do(t, http.MethodPatch, "/api/products/"+product.ID, otherToken, create)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner update: status %d, want 403", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/products/"+product.ID, otherToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: status %d, want 403", rec.Code)
	}

	// The owner may.
	rec = ts.do(t, http.MethodGet, "/api/products/mine", ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine: status %d", rec.Code)
	}
	mine := decodeResponse[[]gearshop.Product](t, rec)
	if len(mine) != 1 {
		t.Fatalf("mine = %d products, want 1", len(mine))
	}

	rec = ts.do(t, http.MethodDelete, "/api/products/"+product.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/products/"+product.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted get: status %d, want 404", rec.Code)
	}
}

func TestPurgeEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	superToken := ts.superToken(t)
	ts.register(t, "plain")
	plainToken := ts.login(t, "plain@example.com").Token

	rec := ts.do(t, http.MethodDelete, "/api/products/purge", plainToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client purge: status %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/products/purge", superToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decodeResponse[purgeResponse](t, rec)
	if len(out.Categories) != 2 {
		t.Fatalf("purge categories = %v", out.Categories)
	}

	// A requested set outside the purgeable list is a 400.
	rec = ts.do(t, http.MethodDelete, "/api/products/purge?category=keyboards", superToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-purgeable request: status %d, want 400", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{LoginRatePerMinute: 1, LoginRateBurst: 2})

	ts.register(t, "limited")

	body := map[string]any{"email": "limited@example.com", "password": "wrong"}
	var last int
	for i := 0; i < 5; i++ {
		last = ts.do(t, http.MethodPost, "/api/auth/login", "", body).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("fifth attempt: status %d, want 429", last)
	}
}
