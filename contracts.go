package gearshop

import (
	"strings"
	"time"

	"github.com/gearshop/gearshop/pkg/roles"
	"github.com/gearshop/gearshop/pkg/storage"
)

type SocialLinks struct {
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
}

// Account is the outward projection of an account record. The credential
// hash never leaves the storage layer through this type.
type Account struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        roles.Role  `json:"role"`
	Bio         string      `json:"bio"`
	AvatarURL   string      `json:"avatarUrl"`
	SocialLinks SocialLinks `json:"socialLinks"`
	Active      bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	OwnerID     string     `json:"ownerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (in RegisterInput) Normalize() RegisterInput {
	return RegisterInput{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(strings.ToLower(in.Email)),
		Password: in.Password,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token   string  `json:"token"`
	Account Account `json:"user"`
}

// ProfileInput patches the owner-mutable profile fields. Nil fields are
// left as they are.
type ProfileInput struct {
	Bio         *string
	AvatarURL   *string
	SocialLinks *SocialLinks
}

// ProductInput carries product fields for create and update. Every field is
// required; ownership is never part of the input.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Image       string
}

func (in ProductInput) Normalize() ProductInput {
	return ProductInput{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    strings.TrimSpace(strings.ToLower(in.Category)),
		Image:       strings.TrimSpace(in.Image),
	}
}

type ProductSearch struct {
	// Search is matched case-insensitively as a substring of the name.
	Search string
	// Categories narrows the listing; it is always intersected with the
	// configured allowlist.
	Categories []string
	Sort       storage.ProductSort
}

// ParseSort maps an API sort key to a storage sort order, defaulting to
// latest-first for unknown keys.
func ParseSort(value string) storage.ProductSort {
	switch storage.ProductSort(value) {
	case storage.SortPriceAsc:
		return storage.SortPriceAsc
	case storage.SortPriceDesc:
		return storage.SortPriceDesc
	case storage.SortNameAsc:
		return storage.SortNameAsc
	case storage.SortNameDesc:
		return storage.SortNameDesc
	default:
		return storage.SortLatest
	}
}

func accountProjection(record storage.AccountRecord) Account {
	return Account{
		ID:        record.ID,
		Username:  record.Username,
		Email:     record.Email,
		Role:      roles.Role(record.Role),
		Bio:       record.Bio,
		AvatarURL: record.AvatarURL,
		SocialLinks: SocialLinks{
			Twitter:   record.SocialLinks.Twitter,
			Facebook:  record.SocialLinks.Facebook,
			Instagram: record.SocialLinks.Instagram,
		},
		Active:    record.Active,
		CreatedAt: record.DateAdded,
		UpdatedAt: record.DateModified,
	}
}

func productProjection(record storage.ProductRecord) Product {
	return Product{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		Price:       record.Price,
		Category:    record.Category,
		Image:       record.Image,
		OwnerID:     record.OwnerID,
		CreatedAt:   record.DateAdded,
		UpdatedAt:   record.DateModified,
	}
}

func productProjections(records []storage.ProductRecord) []Product {
	out := make([]Product, 0, len(records))
	for _, record := range records {
		out = append(out, productProjection(record))
	}
	return out
}
