package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gearshop/gearshop/pkg/storage"
)

// Adapter is an in-process store backend. It backs tests and single-node
// development runs; postgres is the production backend.
type Adapter struct {
	mu       sync.RWMutex
	accounts map[string]storage.AccountRecord
	products map[string]storage.ProductRecord
}

var _ storage.AccountStore = (*Adapter)(nil)
var _ storage.ProductStore = (*Adapter)(nil)
var _ storage.Store = (*Adapter)(nil)

func NewAdapter() *Adapter {
	return &Adapter{
		accounts: map[string]storage.AccountRecord{},
		products: map[string]storage.ProductRecord{},
	}
}

func (a *Adapter) PutAccount(ctx context.Context, record storage.AccountRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, existing := range a.accounts {
		if id == record.ID {
			continue
		}
		if strings.EqualFold(existing.Email, record.Email) || existing.Username == record.Username {
			return storage.ErrDuplicate
		}
	}

	if record.DateAdded.IsZero() {
		record.DateAdded = time.Now().UTC()
	}
	a.accounts[record.ID] = record
	return nil
}

func (a *Adapter) GetAccount(ctx context.Context, id string) (storage.AccountRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	record, ok := a.accounts[id]
	if !ok {
		return storage.AccountRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (storage.AccountRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, record := range a.accounts {
		if strings.EqualFold(record.Email, email) {
			return record, nil
		}
	}
	return storage.AccountRecord{}, storage.ErrNotFound
}

func (a *Adapter) FirstAccountWithRole(ctx context.Context, role string) (storage.AccountRecord, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, record := range a.accounts {
		if record.Role == role {
			return record, true, nil
		}
	}
	return storage.AccountRecord{}, false, nil
}

func (a *Adapter) ListAccounts(ctx context.Context) ([]storage.AccountRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]storage.AccountRecord, 0, len(a.accounts))
	for _, record := range a.accounts {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DateAdded.Before(records[j].DateAdded)
	})
	return records, nil
}

func (a *Adapter) UpdateAccountProfile(ctx context.Context, id string, patch storage.ProfilePatch) (storage.AccountRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.accounts[id]
	if !ok {
		return storage.AccountRecord{}, storage.ErrNotFound
	}

	if patch.Bio != nil {
		record.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		record.AvatarURL = *patch.AvatarURL
	}
	if patch.SocialLinks != nil {
		record.SocialLinks = *patch.SocialLinks
	}

	modified := time.Now().UTC()
	record.DateModified = &modified
	a.accounts[id] = record
	return record, nil
}

func (a *Adapter) UpdateAccountRole(ctx context.Context, id string, role string) (storage.AccountRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.accounts[id]
	if !ok {
		return storage.AccountRecord{}, storage.ErrNotFound
	}

	record.Role = role
	modified := time.Now().UTC()
	record.DateModified = &modified
	a.accounts[id] = record
	return record, nil
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(a.accounts, id)
	return nil
}

func (a *Adapter) PutProduct(ctx context.Context, record storage.ProductRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if record.DateAdded.IsZero() {
		record.DateAdded = time.Now().UTC()
	}
	a.products[record.ID] = record
	return nil
}

func (a *Adapter) GetProduct(ctx context.Context, id string) (storage.ProductRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	record, ok := a.products[id]
	if !ok {
		return storage.ProductRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (a *Adapter) QueryProducts(ctx context.Context, query storage.ProductQuery) ([]storage.ProductRecord, error) {
	a.mu.RLock()
	records := make([]storage.ProductRecord, 0, len(a.products))
	for _, record := range a.products {
		if !matchesQuery(record, query) {
			continue
		}
		records = append(records, record)
	}
	a.mu.RUnlock()

	sortRecords(records, query.Sort)
	return records, nil
}

func (a *Adapter) ListProductsByOwner(ctx context.Context, ownerID string) ([]storage.ProductRecord, error) {
	if ownerID == "" {
		return nil, nil
	}

	a.mu.RLock()
	records := make([]storage.ProductRecord, 0)
	for _, record := range a.products {
		if record.OwnerID == ownerID {
			records = append(records, record)
		}
	}
	a.mu.RUnlock()

	sortRecords(records, storage.SortLatest)
	return records, nil
}

func (a *Adapter) UpdateProduct(ctx context.Context, id string, patch storage.ProductPatch) (storage.ProductRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.products[id]
	if !ok {
		return storage.ProductRecord{}, storage.ErrNotFound
	}

	record.Name = patch.Name
	record.Description = patch.Description
	record.Price = patch.Price
	record.Category = patch.Category
	record.Image = patch.Image

	modified := time.Now().UTC()
	record.DateModified = &modified
	a.products[id] = record
	return record, nil
}

func (a *Adapter) DeleteProduct(ctx context.Context, id string) (storage.ProductRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.products[id]
	if !ok {
		return storage.ProductRecord{}, storage.ErrNotFound
	}
	delete(a.products, id)
	return record, nil
}

func (a *Adapter) PurgeCategories(ctx context.Context, categories []string) (int64, error) {
	if len(categories) == 0 {
		return 0, nil
	}

	purgeable := map[string]bool{}
	for _, category := range categories {
		purgeable[category] = true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var deleted int64
	for id, record := range a.products {
		if purgeable[record.Category] {
			delete(a.products, id)
			deleted++
		}
	}
	return deleted, nil
}

func matchesQuery(record storage.ProductRecord, query storage.ProductQuery) bool {
	if query.NameSubstring != "" &&
		!strings.Contains(strings.ToLower(record.Name), strings.ToLower(query.NameSubstring)) {
		return false
	}

	if len(query.Categories) > 0 {
		found := false
		for _, category := range query.Categories {
			if record.Category == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func sortRecords(records []storage.ProductRecord, order storage.ProductSort) {
	switch order {
	case storage.SortPriceAsc:
		sort.SliceStable(records, func(i, j int) bool { return records[i].Price < records[j].Price })
	case storage.SortPriceDesc:
		sort.SliceStable(records, func(i, j int) bool { return records[i].Price > records[j].Price })
	case storage.SortNameAsc:
		sort.SliceStable(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	case storage.SortNameDesc:
		sort.SliceStable(records, func(i, j int) bool { return records[i].Name > records[j].Name })
	default:
		sort.SliceStable(records, func(i, j int) bool { return records[i].DateAdded.After(records[j].DateAdded) })
	}
}
