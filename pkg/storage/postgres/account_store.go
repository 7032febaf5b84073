package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gearshop/gearshop/pkg/storage"
)

const (
	putAccountQuery = `
INSERT INTO gearshop.accounts (
  id, date_added, date_modified, username, email, password_hash, role,
  bio, avatar_url, link_twitter, link_facebook, link_instagram, is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

	accountColumns = `
  id::text, date_added, date_modified, username, email, password_hash, role,
  bio, avatar_url, link_twitter, link_facebook, link_instagram, is_active
`

	getAccountQuery = `
SELECT` + accountColumns + `
FROM gearshop.accounts
WHERE id = $1
`

	getAccountByEmailQuery = `
SELECT` + accountColumns + `
FROM gearshop.accounts
WHERE lower(email) = lower($1)
`

	firstAccountWithRoleQuery = `
SELECT` + accountColumns + `
FROM gearshop.accounts
WHERE role = $1
ORDER BY date_added
LIMIT 1
`

	listAccountsQuery = `
SELECT` + accountColumns + `
FROM gearshop.accounts
ORDER BY date_added
`

	updateAccountProfileQuery = `
UPDATE gearshop.accounts
SET
  bio = COALESCE($2, bio),
  avatar_url = COALESCE($3, avatar_url),
  link_twitter = COALESCE($4, link_twitter),
  link_facebook = COALESCE($5, link_facebook),
  link_instagram = COALESCE($6, link_instagram),
  date_modified = $7
WHERE id = $1
RETURNING` + accountColumns + `
`

	updateAccountRoleQuery = `
UPDATE gearshop.accounts
SET role = $2, date_modified = $3
WHERE id = $1
RETURNING` + accountColumns + `
`

	deleteAccountQuery = `DELETE FROM gearshop.accounts WHERE id = $1`
)

func (a *Adapter) PutAccount(ctx context.Context, record storage.AccountRecord) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	dateAdded := record.DateAdded
	if dateAdded.IsZero() {
		dateAdded = time.Now().UTC()
	}

	var dateModified *time.Time
	if record.DateModified != nil {
		modified := record.DateModified.UTC()
		dateModified = &modified
	}

	_, err := a.stmts.putAccount.ExecContext(
		ctx,
		record.ID,
		dateAdded,
		dateModified,
		record.Username,
		record.Email,
		record.PasswordHash,
		record.Role,
		record.Bio,
		record.AvatarURL,
		record.SocialLinks.Twitter,
		record.SocialLinks.Facebook,
		record.SocialLinks.Instagram,
		record.Active,
	)
	return mapConstraintError(err)
}

func (a *Adapter) GetAccount(ctx context.Context, id string) (storage.AccountRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.AccountRecord{}, err
	}

	return scanAccount(a.stmts.getAccount.QueryRowContext(ctx, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (storage.AccountRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.AccountRecord{}, err
	}

	return scanAccount(a.stmts.getAccountByEmail.QueryRowContext(ctx, email))
}

func (a *Adapter) FirstAccountWithRole(ctx context.Context, role string) (storage.AccountRecord, bool, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.AccountRecord{}, false, err
	}

	record, err := scanAccount(a.stmts.firstAccountWithRole.QueryRowContext(ctx, role))
	if errors.Is(err, storage.ErrNotFound) {
		return storage.AccountRecord{}, false, nil
	}
	if err != nil {
		return storage.AccountRecord{}, false, err
	}
	return record, true, nil
}

func (a *Adapter) ListAccounts(ctx context.Context) ([]storage.AccountRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}

	rows, err := a.stmts.listAccounts.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]storage.AccountRecord, 0)
	for rows.Next() {
		record, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (a *Adapter) UpdateAccountProfile(ctx context.Context, id string, patch storage.ProfilePatch) (storage.AccountRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.AccountRecord{}, err
	}

	var twitter, facebook, instagram *string
	if patch.SocialLinks != nil {
		twitter = &patch.SocialLinks.Twitter
		facebook = &patch.SocialLinks.Facebook
		instagram = &patch.SocialLinks.Instagram
	}

	return scanAccount(a.stmts.updateAccountProfile.QueryRowContext(
		ctx,
		id,
		patch.Bio,
		patch.AvatarURL,
		twitter,
		facebook,
		instagram,
		time.Now().UTC(),
	))
}

func (a *Adapter) UpdateAccountRole(ctx context.Context, id string, role string) (storage.AccountRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.AccountRecord{}, err
	}

	return scanAccount(a.stmts.updateAccountRole.QueryRowContext(ctx, id, role, time.Now().UTC()))
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	if err := a.requirePreparedStatements(); err != nil {
		return err
	}

	result, err := a.stmts.deleteAccount.ExecContext(ctx, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAccount(row scanner) (storage.AccountRecord, error) {
	var record storage.AccountRecord
	var dateModified sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.DateAdded,
		&dateModified,
		&record.Username,
		&record.Email,
		&record.PasswordHash,
		&record.Role,
		&record.Bio,
		&record.AvatarURL,
		&record.SocialLinks.Twitter,
		&record.SocialLinks.Facebook,
		&record.SocialLinks.Instagram,
		&record.Active,
	)
	if err != nil {
		return storage.AccountRecord{}, mapConstraintError(err)
	}

	if dateModified.Valid {
		modified := dateModified.Time
		record.DateModified = &modified
	}
	return record, nil
}
