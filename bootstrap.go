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

// EnsureSuperAdmin creates the single well-known super_admin account if the
// store has none. Repeated invocations are no-ops: super_admin is reachable
// only through this bootstrap, never through the role-change workflow.
func (c *Client) EnsureSuperAdmin(ctx context.Context) (Account, error) {
	existing, found, err := c.store.FirstAccountWithRole(ctx, string(roles.RoleSuperAdmin))
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to scan for super admin", err)
	}
	if found {
		return accountProjection(existing), nil
	}

	hash, err := c.hasher.Hash(c.bootstrap.Password)
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeUnknown, "failed to hash bootstrap password", err)
	}

	record := storage.AccountRecord{
		ID:           uuid.NewString(),
		DateAdded:    time.Now().UTC(),
		Username:     c.bootstrap.Username,
		Email:        c.bootstrap.Email,
		PasswordHash: hash,
		Role:         string(roles.RoleSuperAdmin),
		Bio:          "System Super Administrator",
		Active:       true,
	}

	if err := c.store.PutAccount(ctx, record); err != nil {
		// A concurrent bootstrap may have won the race on the unique
		// identity; re-read instead of failing.
		if errors.Is(err, storage.ErrDuplicate) {
			existing, found, scanErr := c.store.FirstAccountWithRole(ctx, string(roles.RoleSuperAdmin))
			if scanErr == nil && found {
				return accountProjection(existing), nil
			}
		}
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to create super admin", err)
	}

	c.logger.Info("super admin bootstrapped", "account_id", record.ID, "username", record.Username)
	return accountProjection(record), nil
}
