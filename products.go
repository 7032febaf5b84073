package gearshop

import (
	"context"
	"errors"
	"time"

	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/roles"
	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/google/uuid"
)

func (c *Client) validateProductInput(input ProductInput) error {
	if input.Name == "" || input.Description == "" || input.Category == "" || input.Image == "" {
		return oerrors.New(oerrors.CodeValidation, "all fields are required")
	}
	if input.Price < 0 {
		return oerrors.New(oerrors.CodeValidation, "price must not be negative")
	}
	if !c.categoryAllowed(input.Category) {
		return oerrors.New(oerrors.CodeValidation, "category is not in the allowed set")
	}
	return nil
}

// CreateProduct stores a new product owned by the acting account. Any
// authenticated account may create; the owner reference is fixed here and
// never changes afterwards.
func (c *Client) CreateProduct(ctx context.Context, actorID string, input ProductInput) (Product, error) {
	actor, err := c.requireAction(ctx, actorID, roles.ActionCreateProduct)
	if err != nil {
		return Product{}, err
	}

	input = input.Normalize()
	if err := c.validateProductInput(input); err != nil {
		return Product{}, err
	}

	record := storage.ProductRecord{
		ID:          uuid.NewString(),
		DateAdded:   time.Now().UTC(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Image:       input.Image,
		OwnerID:     actor.ID,
	}

	if err := c.store.PutProduct(ctx, record); err != nil {
		return Product{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to store product", err)
	}

	c.logger.V(1).Info("product created", "product_id", record.ID, "owner_id", actor.ID, "category", record.Category)
	return productProjection(record), nil
}

// ProductByID returns a single product. Products in categories outside the
// allowlist stay invisible.
func (c *Client) ProductByID(ctx context.Context, productID string) (Product, error) {
	record, err := c.store.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return Product{}, oerrors.New(oerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return Product{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to load product", err)
	}

	if !c.categoryAllowed(record.Category) {
		return Product{}, oerrors.New(oerrors.CodeNotFound, "product not found")
	}
	return productProjection(record), nil
}

// SearchProducts lists products matching the search, always filtered by the
// category allowlist. No authentication required.
func (c *Client) SearchProducts(ctx context.Context, search ProductSearch) ([]Product, error) {
	categories := c.intersectAllowed(search.Categories)
	if len(categories) == 0 {
		return []Product{}, nil
	}

	records, err := c.store.QueryProducts(ctx, storage.ProductQuery{
		NameSubstring: search.Search,
		Categories:    categories,
		Sort:          search.Sort,
	})
	if err != nil {
		return nil, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to query products", err)
	}
	return productProjections(records), nil
}

// ListProducts returns the allowlisted catalog in the given order.
func (c *Client) ListProducts(ctx context.Context, sort storage.ProductSort) ([]Product, error) {
	return c.SearchProducts(ctx, ProductSearch{Sort: sort})
}

// MyProducts lists the products owned by the acting account.
func (c *Client) MyProducts(ctx context.Context, actorID string) ([]Product, error) {
	actor, err := c.requireAccount(ctx, actorID)
	if err != nil {
		return nil, err
	}

	records, err := c.store.ListProductsByOwner(ctx, actor.ID)
	if err != nil {
		return nil, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to list products", err)
	}
	return productProjections(records), nil
}

// UpdateProduct replaces the mutable fields of a product after the
// ownership check passes. The owner reference survives every update.
func (c *Client) UpdateProduct(ctx context.Context, actorID string, productID string, input ProductInput) (Product, error) {
	if _, err := c.authorizeProductMutation(ctx, actorID, productID); err != nil {
		return Product{}, err
	}

	input = input.Normalize()
	if err := c.validateProductInput(input); err != nil {
		return Product{}, err
	}

	record, err := c.store.UpdateProduct(ctx, productID, storage.ProductPatch{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Image:       input.Image,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return Product{}, oerrors.New(oerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return Product{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to update product", err)
	}

	c.logger.V(1).Info("product updated", "product_id", productID, "actor_id", actorID)
	return productProjection(record), nil
}

// DeleteProduct removes a product after the ownership check passes.
func (c *Client) DeleteProduct(ctx context.Context, actorID string, productID string) (Product, error) {
	if _, err := c.authorizeProductMutation(ctx, actorID, productID); err != nil {
		return Product{}, err
	}

	record, err := c.store.DeleteProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return Product{}, oerrors.New(oerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return Product{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to delete product", err)
	}

	c.logger.V(1).Info("product deleted", "product_id", productID, "actor_id", actorID)
	return productProjection(record), nil
}

// PurgeCategories irreversibly deletes every product in the requested
// purgeable categories. Admin or above; an empty request purges the whole
// configured purgeable set.
func (c *Client) PurgeCategories(ctx context.Context, actorID string, requested []string) (int64, []string, error) {
	if _, err := c.requireAction(ctx, actorID, roles.ActionPurgeCatalog); err != nil {
		return 0, nil, err
	}

	categories := c.intersectPurgeable(requested)
	if len(categories) == 0 {
		return 0, nil, oerrors.New(oerrors.CodeValidation, "no valid categories to purge")
	}

	deleted, err := c.store.PurgeCategories(ctx, categories)
	if err != nil {
		return 0, nil, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to purge categories", err)
	}

	c.logger.Info("categories purged", "actor_id", actorID, "categories", categories, "deleted", deleted)
	return deleted, categories, nil
}
