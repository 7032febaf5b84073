package gearshop

import (
	"context"
	"errors"

	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/roles"
	"github.com/gearshop/gearshop/pkg/storage"
)

// Authenticate resolves a bearer token to an account identifier. It returns
// only the identifier: the caller's role is loaded fresh by every downstream
// check, so a role change takes effect on the next request even for tokens
// issued before it.
func (c *Client) Authenticate(ctx context.Context, bearer string) (string, error) {
	if c == nil || c.validator == nil {
		return "", oerrors.New(oerrors.CodeUnauthenticated, "authentication is not configured")
	}
	if bearer == "" {
		return "", oerrors.New(oerrors.CodeUnauthenticated, "missing bearer token")
	}

	subject, err := c.validator.Validate(ctx, bearer)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	return subject, nil
}

// requireAccount loads the acting account. An identifier that no longer
// resolves (deleted between token issuance and use) fails with NotFound.
func (c *Client) requireAccount(ctx context.Context, accountID string) (storage.AccountRecord, error) {
	if accountID == "" {
		return storage.AccountRecord{}, oerrors.New(oerrors.CodeUnauthenticated, "missing account identity")
	}

	record, err := c.store.GetAccount(ctx, accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.AccountRecord{}, oerrors.New(oerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return storage.AccountRecord{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to load account", err)
	}
	return record, nil
}

// requireAction composes identity resolution with the class-level role
// check: the actor must exist and clear the action's minimum role.
func (c *Client) requireAction(ctx context.Context, actorID string, action roles.Action) (storage.AccountRecord, error) {
	actor, err := c.requireAccount(ctx, actorID)
	if err != nil {
		return storage.AccountRecord{}, err
	}

	if !roles.Role(actor.Role).Allows(action) {
		return storage.AccountRecord{}, oerrors.New(oerrors.CodeForbidden, "insufficient permissions")
	}
	return actor, nil
}

// authorizeProductMutation performs the instance-level ownership check for
// update and delete. Admin-or-above overrides ownership; otherwise the
// product's owner reference must equal the actor. Products without an owner
// reference are admin-only: absence of an owner is never implicit ownership.
func (c *Client) authorizeProductMutation(ctx context.Context, actorID string, productID string) (storage.ProductRecord, error) {
	actor, err := c.requireAccount(ctx, actorID)
	if err != nil {
		return storage.ProductRecord{}, err
	}

	record, err := c.store.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ProductRecord{}, oerrors.New(oerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return storage.ProductRecord{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to load product", err)
	}

	if roles.Role(actor.Role).AtLeast(roles.RoleAdmin) {
		return record, nil
	}
	if record.OwnerID != "" && record.OwnerID == actor.ID {
		return record, nil
	}
	return storage.ProductRecord{}, oerrors.New(oerrors.CodeForbidden, "insufficient permissions")
}

func (c *Client) categoryAllowed(category string) bool {
	for _, allowed := range c.catalog.AllowedCategories {
		if category == allowed {
			return true
		}
	}
	return false
}

// intersectAllowed narrows requested categories to the allowlist. An empty
// request means the whole allowlist.
func (c *Client) intersectAllowed(requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(c.catalog.AllowedCategories))
		copy(out, c.catalog.AllowedCategories)
		return out
	}

	out := make([]string, 0, len(requested))
	for _, category := range requested {
		if c.categoryAllowed(category) {
			out = append(out, category)
		}
	}
	return out
}

func (c *Client) intersectPurgeable(requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(c.catalog.PurgeableCategories))
		copy(out, c.catalog.PurgeableCategories)
		return out
	}

	purgeable := map[string]bool{}
	for _, category := range c.catalog.PurgeableCategories {
		purgeable[category] = true
	}

	out := make([]string, 0, len(requested))
	for _, category := range requested {
		if purgeable[category] {
			out = append(out, category)
		}
	}
	return out
}
