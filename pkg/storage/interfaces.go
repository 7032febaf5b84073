package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when a unique constraint (email, username)
	// would be violated.
	ErrDuplicate = errors.New("storage: duplicate record")
)

type SocialLinks struct {
	Twitter   string
	Facebook  string
	Instagram string
}

type AccountRecord struct {
	ID           string
	DateAdded    time.Time
	DateModified *time.Time
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Bio          string
	AvatarURL    string
	SocialLinks  SocialLinks
	Active       bool
}

// ProfilePatch carries the profile fields an account owner may change.
// Nil fields are left untouched.
type ProfilePatch struct {
	Bio         *string
	AvatarURL   *string
	SocialLinks *SocialLinks
}

type ProductRecord struct {
	ID           string
	DateAdded    time.Time
	DateModified *time.Time
	Name         string
	Description  string
	Price        float64
	Category     string
	Image        string
	// OwnerID is set once at creation and never changes. Records created
	// before ownership tracking carry an empty owner.
	OwnerID string
}

// ProductPatch carries the mutable product fields. The owner reference is
// deliberately absent: ownership is immutable.
type ProductPatch struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Image       string
}

type ProductSort string

const (
	SortLatest    ProductSort = "latest"
	SortPriceAsc  ProductSort = "price-low-to-high"
	SortPriceDesc ProductSort = "price-high-to-low"
	SortNameAsc   ProductSort = "name-a-to-z"
	SortNameDesc  ProductSort = "name-z-to-a"
)

type ProductQuery struct {
	// NameSubstring filters by case-insensitive substring match on the name.
	NameSubstring string
	// Categories restricts results to the given categories. The caller is
	// responsible for intersecting with the configured allowlist first.
	Categories []string
	Sort       ProductSort
}

type AccountStore interface {
	PutAccount(ctx context.Context, record AccountRecord) error
	GetAccount(ctx context.Context, id string) (AccountRecord, error)
	GetAccountByEmail(ctx context.Context, email string) (AccountRecord, error)
	FirstAccountWithRole(ctx context.Context, role string) (AccountRecord, bool, error)
	ListAccounts(ctx context.Context) ([]AccountRecord, error)
	UpdateAccountProfile(ctx context.Context, id string, patch ProfilePatch) (AccountRecord, error)
	UpdateAccountRole(ctx context.Context, id string, role string) (AccountRecord, error)
	DeleteAccount(ctx context.Context, id string) error
}

type ProductStore interface {
	PutProduct(ctx context.Context, record ProductRecord) error
	GetProduct(ctx context.Context, id string) (ProductRecord, error)
	QueryProducts(ctx context.Context, query ProductQuery) ([]ProductRecord, error)
	ListProductsByOwner(ctx context.Context, ownerID string) ([]ProductRecord, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (ProductRecord, error)
	DeleteProduct(ctx context.Context, id string) (ProductRecord, error)
	PurgeCategories(ctx context.Context, categories []string) (int64, error)
}

type Store interface {
	AccountStore
	ProductStore
}
