// Package testsuite holds a backend-agnostic conformance suite for Store
// implementations. Every adapter runs the same contract.
package testsuite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/google/uuid"
)

// Run exercises the full Store contract against a fresh adapter returned by
// newStore. Each subtest gets its own instance so state never leaks.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("AccountLifecycle", func(t *testing.T) { testAccountLifecycle(t, newStore(t)) })
	t.Run("AccountUniqueness", func(t *testing.T) { testAccountUniqueness(t, newStore(t)) })
	t.Run("AccountRoleUpdate", func(t *testing.T) { testAccountRoleUpdate(t, newStore(t)) })
	t.Run("ProductLifecycle", func(t *testing.T) { testProductLifecycle(t, newStore(t)) })
	t.Run("ProductOwnerImmutable", func(t *testing.T) { testProductOwnerImmutable(t, newStore(t)) })
	t.Run("ProductQuery", func(t *testing.T) { testProductQuery(t, newStore(t)) })
	t.Run("ProductPurge", func(t *testing.T) { testProductPurge(t, newStore(t)) })
}

func newAccount(username, email, role string) storage.AccountRecord {
	return storage.AccountRecord{
		ID:           uuid.NewString(),
		DateAdded:    time.Now().UTC(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Active:       true,
	}
}

func newProduct(name, category, ownerID string, price float64) storage.ProductRecord {
	return storage.ProductRecord{
		ID:          uuid.NewString(),
		DateAdded:   time.Now().UTC(),
		Name:        name,
		Description: "desc",
		Price:       price,
		Category:    category,
		Image:       "https://img.example/" + name,
		OwnerID:     ownerID,
	}
}

func testAccountLifecycle(t *testing.T, store storage.Store) {
	ctx := context.Background()

	record := newAccount("alice", "alice@example.com", "client")
	if err := store.PutAccount(ctx, record); err != nil {
		t.Fatalf("put account: %v", err)
	}

	got, err := store.GetAccount(ctx, record.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" || got.Role != "client" {
		t.Fatalf("unexpected account: %+v", got)
	}

	byEmail, err := store.GetAccountByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("get account by email: %v", err)
	}
	if byEmail.ID != record.ID {
		t.Fatalf("email lookup resolved %q, want %q", byEmail.ID, record.ID)
	}

	bio := "hello"
	updated, err := store.UpdateAccountProfile(ctx, record.ID, storage.ProfilePatch{Bio: &bio})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Bio != "hello" {
		t.Fatalf("bio = %q, want %q", updated.Bio, "hello")
	}
	if updated.AvatarURL != record.AvatarURL {
		t.Fatal("nil patch fields must be left untouched")
	}

	if err := store.DeleteAccount(ctx, record.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := store.GetAccount(ctx, record.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func testAccountUniqueness(t *testing.T, store storage.Store) {
	ctx := context.Background()

	if err := store.PutAccount(ctx, newAccount("bob", "bob@example.com", "client")); err != nil {
		t.Fatalf("put account: %v", err)
	}

	err := store.PutAccount(ctx, newAccount("bobby", "bob@example.com", "client"))
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused email, got %v", err)
	}

	err = store.PutAccount(ctx, newAccount("bob", "bob2@example.com", "client"))
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused username, got %v", err)
	}
}

func testAccountRoleUpdate(t *testing.T, store storage.Store) {
	ctx := context.Background()

	record := newAccount("carol", "carol@example.com", "client")
	if err := store.PutAccount(ctx, record); err != nil {
		t.Fatalf("put account: %v", err)
	}

	updated, err := store.UpdateAccountRole(ctx, record.ID, "admin")
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != "admin" {
		t.Fatalf("role = %q, want %q", updated.Role, "admin")
	}

	if _, err := store.UpdateAccountRole(ctx, uuid.NewString(), "admin"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent account, got %v", err)
	}

	found, ok, err := store.FirstAccountWithRole(ctx, "admin")
	if err != nil {
		t.Fatalf("first account with role: %v", err)
	}
	if !ok || found.ID != record.ID {
		t.Fatalf("role scan resolved %+v ok=%v, want %q", found, ok, record.ID)
	}
}

func testProductLifecycle(t *testing.T, store storage.Store) {
	ctx := context.Background()

	record := newProduct("TKL Keyboard", "keyboards", uuid.NewString(), 129.99)
	if err := store.PutProduct(ctx, record); err != nil {
		t.Fatalf("put product: %v", err)
	}

	got, err := store.GetProduct(ctx, record.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Name != record.Name || got.OwnerID != record.OwnerID {
		t.Fatalf("unexpected product: %+v", got)
	}

	deleted, err := store.DeleteProduct(ctx, record.ID)
	if err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if deleted.ID != record.ID {
		t.Fatalf("deleted %q, want %q", deleted.ID, record.ID)
	}

	if _, err := store.DeleteProduct(ctx, record.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testProductOwnerImmutable(t *testing.T, store storage.Store) {
	ctx := context.Background()

	owner := uuid.NewString()
	record := newProduct("Wireless Mouse", "mice", owner, 59.0)
	if err := store.PutProduct(ctx, record); err != nil {
		t.Fatalf("put product: %v", err)
	}

	updated, err := store.UpdateProduct(ctx, record.ID, storage.ProductPatch{
		Name:        "Wireless Mouse v2",
		Description: "updated",
		Price:       64.0,
		Category:    "mice",
		Image:       record.Image,
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.OwnerID != owner {
		t.Fatalf("owner changed to %q, want %q", updated.OwnerID, owner)
	}
	if updated.Name != "Wireless Mouse v2" || updated.Price != 64.0 {
		t.Fatalf("patch not applied: %+v", updated)
	}

	mine, err := store.ListProductsByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != record.ID {
		t.Fatalf("owner listing = %+v, want the single owned product", mine)
	}
}

func testProductQuery(t *testing.T, store storage.Store) {
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seed := []storage.ProductRecord{
		newProduct("Alpha Keyboard", "keyboards", "", 80),
		newProduct("Beta Keyboard", "keyboards", "", 40),
		newProduct("Studio Monitor", "monitors", "", 250),
		newProduct("Pocket Watch", "watches", "", 15),
	}
	for i := range seed {
		seed[i].DateAdded = base.Add(time.Duration(i) * time.Minute)
		if err := store.PutProduct(ctx, seed[i]); err != nil {
			t.Fatalf("put product: %v", err)
		}
	}

	results, err := store.QueryProducts(ctx, storage.ProductQuery{
		NameSubstring: "keyboard",
		Categories:    []string{"keyboards", "monitors"},
		Sort:          storage.SortPriceAsc,
	})
	if err != nil {
		t.Fatalf("query products: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "Beta Keyboard" || results[1].Name != "Alpha Keyboard" {
		t.Fatalf("unexpected price ordering: %q then %q", results[0].Name, results[1].Name)
	}

	results, err = store.QueryProducts(ctx, storage.ProductQuery{
		Categories: []string{"keyboards", "monitors"},
		Sort:       storage.SortLatest,
	})
	if err != nil {
		t.Fatalf("query products: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Name != "Studio Monitor" {
		t.Fatalf("latest-first ordering starts with %q, want %q", results[0].Name, "Studio Monitor")
	}

	results, err = store.QueryProducts(ctx, storage.ProductQuery{
		Categories: []string{"keyboards", "monitors"},
		Sort:       storage.SortNameDesc,
	})
	if err != nil {
		t.Fatalf("query products: %v", err)
	}
	if results[0].Name != "Studio Monitor" || results[len(results)-1].Name != "Alpha Keyboard" {
		t.Fatalf("unexpected name ordering: %+v", names(results))
	}
}

func testProductPurge(t *testing.T, store storage.Store) {
	ctx := context.Background()

	seed := []storage.ProductRecord{
		newProduct("Pocket Watch", "watches", "", 15),
		newProduct("Wall Clock", "clocks", "", 25),
		newProduct("Alpha Keyboard", "keyboards", "", 80),
	}
	for _, record := range seed {
		if err := store.PutProduct(ctx, record); err != nil {
			t.Fatalf("put product: %v", err)
		}
	}

	deleted, err := store.PurgeCategories(ctx, []string{"watches", "clocks"})
	if err != nil {
		t.Fatalf("purge categories: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("purged %d records, want 2", deleted)
	}

	remaining, err := store.QueryProducts(ctx, storage.ProductQuery{Categories: []string{"keyboards", "watches", "clocks"}})
	if err != nil {
		t.Fatalf("query products: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Category != "keyboards" {
		t.Fatalf("unexpected survivors: %+v", names(remaining))
	}

	deleted, err = store.PurgeCategories(ctx, nil)
	if err != nil {
		t.Fatalf("purge with no categories: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("purge with no categories removed %d records", deleted)
	}
}

func names(records []storage.ProductRecord) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.Name)
	}
	return out
}
