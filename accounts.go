package gearshop

import (
	"context"
	"errors"
	"strings"
	"time"

	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/roles"
	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/google/uuid"
)

// Register creates a client account. Handles and emails are unique.
func (c *Client) Register(ctx context.Context, input RegisterInput) (Account, error) {
	input = input.Normalize()

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return Account{}, oerrors.New(oerrors.CodeValidation, "username, email and password are required")
	}
	if !strings.Contains(input.Email, "@") {
		return Account{}, oerrors.New(oerrors.CodeValidation, "invalid email address")
	}

	hash, err := c.hasher.Hash(input.Password)
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeValidation, "failed to hash password", err)
	}

	record := storage.AccountRecord{
		ID:           uuid.NewString(),
		DateAdded:    time.Now().UTC(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         string(roles.RoleClient),
		Active:       true,
	}

	if err := c.store.PutAccount(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return Account{}, oerrors.New(oerrors.CodeConflict, "user already exists")
		}
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to store account", err)
	}

	c.logger.V(1).Info("account registered", "account_id", record.ID, "username", record.Username)
	return accountProjection(record), nil
}

// Login verifies credentials and issues a session token bound to the
// account identity. The token carries no role.
func (c *Client) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return LoginResult{}, oerrors.New(oerrors.CodeValidation, "email and password are required")
	}

	record, err := c.store.GetAccountByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return LoginResult{}, oerrors.New(oerrors.CodeInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return LoginResult{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to load account", err)
	}

	ok, err := c.hasher.Verify(input.Password, record.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, oerrors.New(oerrors.CodeInvalidCredentials, "invalid credentials")
	}

	signed, err := c.issuer.Issue(ctx, record.ID, c.tokenTTL.TTL)
	if err != nil {
		return LoginResult{}, oerrors.Wrap(oerrors.CodeUnknown, "failed to issue token", err)
	}

	c.logger.V(1).Info("account logged in", "account_id", record.ID)
	return LoginResult{
		Token:   signed,
		Account: accountProjection(record),
	}, nil
}

// Account returns the caller's own projection.
func (c *Client) Account(ctx context.Context, accountID string) (Account, error) {
	record, err := c.requireAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	return accountProjection(record), nil
}

// UpdateProfile patches the owner-mutable profile fields of the calling
// account. Role and credentials are not reachable through this path.
func (c *Client) UpdateProfile(ctx context.Context, accountID string, input ProfileInput) (Account, error) {
	if _, err := c.requireAccount(ctx, accountID); err != nil {
		return Account{}, err
	}

	patch := storage.ProfilePatch{
		Bio:       input.Bio,
		AvatarURL: input.AvatarURL,
	}
	if input.SocialLinks != nil {
		patch.SocialLinks = &storage.SocialLinks{
			Twitter:   input.SocialLinks.Twitter,
			Facebook:  input.SocialLinks.Facebook,
			Instagram: input.SocialLinks.Instagram,
		}
	}

	record, err := c.store.UpdateAccountProfile(ctx, accountID, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, oerrors.New(oerrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to update profile", err)
	}
	return accountProjection(record), nil
}

// DeleteAccount removes the calling account.
func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	if _, err := c.requireAccount(ctx, accountID); err != nil {
		return err
	}

	if err := c.store.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return oerrors.New(oerrors.CodeNotFound, "account not found")
		}
		return oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to delete account", err)
	}

	c.logger.V(1).Info("account deleted", "account_id", accountID)
	return nil
}

// ListAccounts returns every account projection. Admin or above.
func (c *Client) ListAccounts(ctx context.Context, actorID string) ([]Account, error) {
	if _, err := c.requireAction(ctx, actorID, roles.ActionListAccounts); err != nil {
		return nil, err
	}

	records, err := c.store.ListAccounts(ctx)
	if err != nil {
		return nil, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to list accounts", err)
	}

	out := make([]Account, 0, len(records))
	for _, record := range records {
		out = append(out, accountProjection(record))
	}
	return out, nil
}

// ChangeRole runs the role-escalation workflow. Only a super_admin actor may
// invoke it; only client and admin are legal targets; a super_admin account
// is immutable and no actor may change their own role.
func (c *Client) ChangeRole(ctx context.Context, actorID string, targetID string, requestedRole string) (Account, error) {
	if _, err := c.requireAction(ctx, actorID, roles.ActionChangeRole); err != nil {
		return Account{}, err
	}

	role, err := roles.Parse(requestedRole)
	if err != nil || !roles.AssignableTarget(role) {
		return Account{}, oerrors.New(oerrors.CodeInvalidRole, "invalid role, only client and admin roles are allowed")
	}

	target, err := c.store.GetAccount(ctx, targetID)
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, oerrors.New(oerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to load account", err)
	}

	if target.ID == actorID {
		return Account{}, oerrors.New(oerrors.CodeForbidden, "cannot change your own role")
	}
	if roles.Role(target.Role) == roles.RoleSuperAdmin {
		return Account{}, oerrors.New(oerrors.CodeForbidden, "super admin role cannot be changed")
	}

	updated, err := c.store.UpdateAccountRole(ctx, target.ID, string(role))
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, oerrors.New(oerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return Account{}, oerrors.Wrap(oerrors.CodeStorageUnavailable, "failed to update role", err)
	}

	c.logger.Info("account role changed", "actor_id", actorID, "target_id", target.ID, "role", role)
	return accountProjection(updated), nil
}
