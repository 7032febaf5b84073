package gearshop

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gearshop/gearshop/pkg/crypto"
	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/roles"
	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/gearshop/gearshop/pkg/storage/memory"
)

func newTestClient(t *testing.T) (*Client, *memory.Adapter) {
	t.Helper()

	store := memory.NewAdapter()
	client, err := New(Config{
		Store:  store,
		Hasher: crypto.NewBcryptHasher(crypto.BcryptOptions{Cost: 4}),
		Tokens: TokenConfig{
			Secret: strings.Repeat("s", 32),
			TTL:    time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, store
}

func mustRegister(t *testing.T, client *Client, username string) Account {
	t.Helper()

	account, err := client.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return account
}

func mustBootstrap(t *testing.T, client *Client) Account {
	t.Helper()

	super, err := client.EnsureSuperAdmin(context.Background())
	if err != nil {
		t.Fatalf("bootstrap super admin: %v", err)
	}
	return super
}

func mustPromote(t *testing.T, client *Client, superID string, targetID string) {
	t.Helper()

	if _, err := client.ChangeRole(context.Background(), superID, targetID, "admin"); err != nil {
		t.Fatalf("promote %s: %v", targetID, err)
	}
}

func wantCode(t *testing.T, err error, code oerrors.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %q, got nil", code)
	}
	if !oerrors.IsCode(err, code) {
		t.Fatalf("expected code %q, got %q (%v)", code, oerrors.CodeOf(err), err)
	}
}

func TestBootstrapCreatesExactlyOneSuperAdmin(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	first := mustBootstrap(t, client)
	if first.Role != roles.RoleSuperAdmin {
		t.Fatalf("bootstrap role = %q, want super_admin", first.Role)
	}
	if first.Username != "superadmin" || first.Email != "superadmin@gmail.com" {
		t.Fatalf("bootstrap identity = %q/%q, want the fixed well-known identity", first.Username, first.Email)
	}

	second := mustBootstrap(t, client)
	if second.ID != first.ID {
		t.Fatal("second bootstrap created another super admin")
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("store holds %d accounts after double bootstrap, want 1", len(accounts))
	}
}

func TestRegisterAndLogin(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	account := mustRegister(t, client, "alice")
	if account.Role != roles.RoleClient {
		t.Fatalf("new accounts get role %q, want client", account.Role)
	}

	result, err := client.Login(ctx, LoginInput{Email: "ALICE@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned an empty token")
	}
	if result.Account.ID != account.ID {
		t.Fatalf("login resolved %q, want %q", result.Account.ID, account.ID)
	}

	subject, err := client.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if subject != account.ID {
		t.Fatalf("token subject = %q, want %q", subject, account.ID)
	}

	_, err = client.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	wantCode(t, err, oerrors.CodeInvalidCredentials)

	_, err = client.Register(ctx, RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "x12345678"})
	wantCode(t, err, oerrors.CodeConflict)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, bearer := range []string{"", "garbage", "a.b.c"} {
		_, err := client.Authenticate(ctx, bearer)
		wantCode(t, err, oerrors.CodeUnauthenticated)
	}
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	super := mustBootstrap(t, client)
	carol := mustRegister(t, client, "carol")

	result, err := client.Login(ctx, LoginInput{Email: "carol@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// With a client role the token holder may not list accounts.
	_, err = client.ListAccounts(ctx, mustSubject(t, client, result.Token))
	wantCode(t, err, oerrors.CodeForbidden)

	mustPromote(t, client, super.ID, carol.ID)

	// Same token, next request: the fresh admin role is honored.
	if _, err := client.ListAccounts(ctx, mustSubject(t, client, result.Token)); err != nil {
		t.Fatalf("list accounts after promotion: %v", err)
	}
}

func mustSubject(t *testing.T, client *Client, bearer string) string {
	t.Helper()

	subject, err := client.Authenticate(context.Background(), bearer)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return subject
}

func TestChangeRoleWorkflow(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	super := mustBootstrap(t, client)
	dave := mustRegister(t, client, "dave")
	erin := mustRegister(t, client, "erin")

	updated, err := client.ChangeRole(ctx, super.ID, dave.ID, "admin")
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if updated.Role != roles.RoleAdmin {
		t.Fatalf("role = %q, want admin", updated.Role)
	}

	demoted, err := client.ChangeRole(ctx, super.ID, dave.ID, "client")
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if demoted.Role != roles.RoleClient {
		t.Fatalf("role = %q, want client", demoted.Role)
	}

	// Self-change is rejected even for the super admin.
	_, err = client.ChangeRole(ctx, super.ID, super.ID, "admin")
	wantCode(t, err, oerrors.CodeForbidden)

	// The super admin account is immutable as a target.
	_, err = client.ChangeRole(ctx, super.ID, super.ID, "client")
	wantCode(t, err, oerrors.CodeForbidden)

	// super_admin is not grantable through this workflow.
	_, err = client.ChangeRole(ctx, super.ID, dave.ID, "super_admin")
	wantCode(t, err, oerrors.CodeInvalidRole)

	_, err = client.ChangeRole(ctx, super.ID, dave.ID, "owner")
	wantCode(t, err, oerrors.CodeInvalidRole)

	// Absent target.
	_, err = client.ChangeRole(ctx, super.ID, "missing-account", "admin")
	wantCode(t, err, oerrors.CodeNotFound)

	// Admins cannot change roles at all.
	mustPromote(t, client, super.ID, dave.ID)
	_, err = client.ChangeRole(ctx, dave.ID, erin.ID, "admin")
	wantCode(t, err, oerrors.CodeForbidden)

	// Neither can clients.
	_, err = client.ChangeRole(ctx, erin.ID, dave.ID, "client")
	wantCode(t, err, oerrors.CodeForbidden)
}

func TestOwnershipCheck(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	super := mustBootstrap(t, client)
	owner := mustRegister(t, client, "owner")
	other := mustRegister(t, client, "other")
	admin := mustRegister(t, client, "adminuser")
	mustPromote(t, client, super.ID, admin.ID)

	input := ProductInput{
		Name:        "TKL Keyboard",
		Description: "tenkeyless",
		Price:       129.99,
		Category:    "keyboards",
		Image:       "https://img.example/tkl",
	}

	product, err := client.CreateProduct(ctx, owner.ID, input)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.OwnerID != owner.ID {
		t.Fatalf("owner = %q, want %q", product.OwnerID, owner.ID)
	}

	// The owner may update.
	input.Price = 119.99
	if _, err := client.UpdateProduct(ctx, owner.ID, product.ID, input); err != nil {
		t.Fatalf("owner update: %v", err)
	}

	// Another client may not.
	_, err = client.UpdateProduct(ctx, other.ID, product.ID, input)
	wantCode(t, err, oerrors.CodeForbidden)
	_, err = client.DeleteProduct(ctx, other.ID, product.ID)
	wantCode(t, err, oerrors.CodeForbidden)

	// Admin override keeps ownership intact.
	input.Description = "tenkeyless, revised"
	updated, err := client.UpdateProduct(ctx, admin.ID, product.ID, input)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.OwnerID != owner.ID {
		t.Fatalf("admin update moved ownership to %q", updated.OwnerID)
	}

	// Super admin override too.
	if _, err := client.DeleteProduct(ctx, super.ID, product.ID); err != nil {
		t.Fatalf("super admin delete: %v", err)
	}

	_, err = client.UpdateProduct(ctx, owner.ID, product.ID, input)
	wantCode(t, err, oerrors.CodeNotFound)
}

func TestOwnerlessProductIsAdminOnly(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	super := mustBootstrap(t, client)
	solo := mustRegister(t, client, "solo")

	// A record predating ownership tracking.
	legacy := storage.ProductRecord{
		ID:          "legacy-1",
		DateAdded:   time.Now().UTC(),
		Name:        "Vintage Mouse",
		Description: "legacy record",
		Price:       10,
		Category:    "mice",
		Image:       "https://img.example/vintage",
	}
	if err := store.PutProduct(ctx, legacy); err != nil {
		t.Fatalf("seed legacy product: %v", err)
	}

	input := ProductInput{
		Name:        "Vintage Mouse",
		Description: "still legacy",
		Price:       12,
		Category:    "mice",
		Image:       legacy.Image,
	}

	_, err := client.UpdateProduct(ctx, solo.ID, legacy.ID, input)
	wantCode(t, err, oerrors.CodeForbidden)
	_, err = client.DeleteProduct(ctx, solo.ID, legacy.ID)
	wantCode(t, err, oerrors.CodeForbidden)

	if _, err := client.UpdateProduct(ctx, super.ID, legacy.ID, input); err != nil {
		t.Fatalf("admin-level update of ownerless product: %v", err)
	}
}

func TestProductValidation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	actor := mustRegister(t, client, "maker")
	valid := ProductInput{
		Name:        "Desk Speaker",
		Description: "compact",
		Price:       45,
		Category:    "speakers",
		Image:       "https://img.example/speaker",
	}

	cases := []struct {
		name   string
		mutate func(in ProductInput) ProductInput
	}{
		{"missing name", func(in ProductInput) ProductInput { in.Name = ""; return in }},
		{"missing description", func(in ProductInput) ProductInput { in.Description = ""; return in }},
		{"missing image", func(in ProductInput) ProductInput { in.Image = ""; return in }},
		{"negative price", func(in ProductInput) ProductInput { in.Price = -1; return in }},
		{"category outside allowlist", func(in ProductInput) ProductInput { in.Category = "watches"; return in }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.CreateProduct(ctx, actor.ID, tc.mutate(valid))
			wantCode(t, err, oerrors.CodeValidation)
		})
	}

	// Anonymous creation is impossible: the actor must resolve.
	_, err := client.CreateProduct(ctx, "missing-account", valid)
	wantCode(t, err, oerrors.CodeNotFound)
}

func TestCatalogVisibilityAndSearch(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	actor := mustRegister(t, client, "seller")
	seed := []ProductInput{
		{Name: "Alpha Keyboard", Description: "d", Price: 80, Category: "keyboards", Image: "i"},
		{Name: "Beta Keyboard", Description: "d", Price: 40, Category: "keyboards", Image: "i"},
		{Name: "Studio Monitor", Description: "d", Price: 250, Category: "monitors", Image: "i"},
	}
	for _, input := range seed {
		if _, err := client.CreateProduct(ctx, actor.ID, input); err != nil {
			t.Fatalf("create %s: %v", input.Name, err)
		}
	}

	// A record in a non-allowlisted category stays invisible everywhere.
	hidden := storage.ProductRecord{
		ID:        "hidden-1",
		DateAdded: time.Now().UTC(),
		Name:      "Pocket Watch Keyboard",
		Price:     5,
		Category:  "watches",
		Image:     "i",
	}
	if err := store.PutProduct(ctx, hidden); err != nil {
		t.Fatalf("seed hidden product: %v", err)
	}

	all, err := client.ListProducts(ctx, storage.SortLatest)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listing returned %d products, want 3", len(all))
	}

	_, err = client.ProductByID(ctx, hidden.ID)
	wantCode(t, err, oerrors.CodeNotFound)

	results, err := client.SearchProducts(ctx, ProductSearch{Search: "keyboard", Sort: storage.SortPriceAsc})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("search returned %d products, want 2", len(results))
	}
	if results[0].Name != "Beta Keyboard" {
		t.Fatalf("price ascending starts with %q", results[0].Name)
	}

	// Category filter intersects with the allowlist.
	results, err = client.SearchProducts(ctx, ProductSearch{Categories: []string{"monitors", "watches"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Studio Monitor" {
		t.Fatalf("unexpected filtered results: %+v", results)
	}

	// A filter with no allowlisted member yields an empty result, not
	// the whole catalog.
	results, err = client.SearchProducts(ctx, ProductSearch{Categories: []string{"watches"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("allowlist-disjoint filter returned %d products", len(results))
	}
}

func TestPurgeCategories(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	super := mustBootstrap(t, client)
	admin := mustRegister(t, client, "adminuser")
	clientAcct := mustRegister(t, client, "plain")
	mustPromote(t, client, super.ID, admin.ID)

	for i, category := range []string{"watches", "clocks", "keyboards"} {
		record := storage.ProductRecord{
			ID:        "purge-" + category,
			DateAdded: time.Now().UTC().Add(time.Duration(i) * time.Second),
			Name:      "Item " + category,
			Price:     10,
			Category:  category,
			Image:     "i",
		}
		if err := store.PutProduct(ctx, record); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, _, err := client.PurgeCategories(ctx, clientAcct.ID, nil)
	wantCode(t, err, oerrors.CodeForbidden)

	_, _, err = client.PurgeCategories(ctx, admin.ID, []string{"keyboards"})
	wantCode(t, err, oerrors.CodeValidation)

	deleted, categories, err := client.PurgeCategories(ctx, admin.ID, nil)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("purged %d, want 2", deleted)
	}
	if len(categories) != 2 {
		t.Fatalf("purged categories = %v", categories)
	}

	if _, err := store.GetProduct(ctx, "purge-keyboards"); err != nil {
		t.Fatalf("allowlisted product must survive the purge: %v", err)
	}
}

func TestProfileLifecycle(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	account := mustRegister(t, client, "frank")

	bio := "collector of keyboards"
	links := SocialLinks{Twitter: "https://twitter.example/frank"}
	updated, err := client.UpdateProfile(ctx, account.ID, ProfileInput{Bio: &bio, SocialLinks: &links})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Bio != bio || updated.SocialLinks.Twitter != links.Twitter {
		t.Fatalf("profile not applied: %+v", updated)
	}

	me, err := client.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if me.Bio != bio {
		t.Fatalf("bio = %q, want %q", me.Bio, bio)
	}

	if err := client.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	_, err = client.Account(ctx, account.ID)
	wantCode(t, err, oerrors.CodeNotFound)
}
