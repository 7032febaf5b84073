package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/jackc/pgx/v5/pgconn"
)

type Adapter struct {
	db *sql.DB

	stmts preparedStatements
}

type preparedStatements struct {
	putAccount           *sql.Stmt
	getAccount           *sql.Stmt
	getAccountByEmail    *sql.Stmt
	firstAccountWithRole *sql.Stmt
	listAccounts         *sql.Stmt
	updateAccountProfile *sql.Stmt
	updateAccountRole    *sql.Stmt
	deleteAccount        *sql.Stmt

	putProduct          *sql.Stmt
	getProduct          *sql.Stmt
	listProductsByOwner *sql.Stmt
	updateProduct       *sql.Stmt
	deleteProduct       *sql.Stmt
	purgeCategories     *sql.Stmt

	queryMu          sync.Mutex
	queryBySortOrder map[storage.ProductSort]*sql.Stmt
}

type prepareStatementSpec struct {
	label  string
	query  string
	assign func(*preparedStatements, *sql.Stmt)
}

var fixedPrepareStatementSpecs = []prepareStatementSpec{
	{
		label: "put account",
		query: putAccountQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.putAccount = stmt
		},
	},
	{
		label: "get account",
		query: getAccountQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.getAccount = stmt
		},
	},
	{
		label: "get account by email",
		query: getAccountByEmailQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.getAccountByEmail = stmt
		},
	},
	{
		label: "first account with role",
		query: firstAccountWithRoleQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.firstAccountWithRole = stmt
		},
	},
	{
		label: "list accounts",
		query: listAccountsQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.listAccounts = stmt
		},
	},
	{
		label: "update account profile",
		query: updateAccountProfileQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.updateAccountProfile = stmt
		},
	},
	{
		label: "update account role",
		query: updateAccountRoleQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.updateAccountRole = stmt
		},
	},
	{
		label: "delete account",
		query: deleteAccountQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.deleteAccount = stmt
		},
	},
	{
		label: "put product",
		query: putProductQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.putProduct = stmt
		},
	},
	{
		label: "get product",
		query: getProductQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.getProduct = stmt
		},
	},
	{
		label: "list products by owner",
		query: listProductsByOwnerQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.listProductsByOwner = stmt
		},
	},
	{
		label: "update product",
		query: updateProductQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.updateProduct = stmt
		},
	},
	{
		label: "delete product",
		query: deleteProductQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.deleteProduct = stmt
		},
	},
	{
		label: "purge categories",
		query: purgeCategoriesQuery,
		assign: func(ps *preparedStatements, stmt *sql.Stmt) {
			ps.purgeCategories = stmt
		},
	},
}

var (
	ErrNilDB                 = errors.New("postgres adapter: db is nil")
	ErrAdapterNotInitialized = errors.New("postgres adapter: adapter not initialized")
)

var _ storage.AccountStore = (*Adapter)(nil)
var _ storage.ProductStore = (*Adapter)(nil)
var _ storage.Store = (*Adapter)(nil)

func NewAdapter(db *sql.DB) (*Adapter, error) {
	adapter := &Adapter{
		db: db,
		stmts: preparedStatements{
			queryBySortOrder: map[storage.ProductSort]*sql.Stmt{},
		},
	}

	if err := adapter.prepareStatements(); err != nil {
		_ = adapter.Close()
		return nil, err
	}

	return adapter, nil
}

func (a *Adapter) Close() error {
	if a == nil {
		return nil
	}

	var errs []error

	if err := closeStatements(
		a.stmts.putAccount,
		a.stmts.getAccount,
		a.stmts.getAccountByEmail,
		a.stmts.firstAccountWithRole,
		a.stmts.listAccounts,
		a.stmts.updateAccountProfile,
		a.stmts.updateAccountRole,
		a.stmts.deleteAccount,
		a.stmts.putProduct,
		a.stmts.getProduct,
		a.stmts.listProductsByOwner,
		a.stmts.updateProduct,
		a.stmts.deleteProduct,
		a.stmts.purgeCategories,
	); err != nil {
		errs = append(errs, err)
	}

	a.stmts.queryMu.Lock()
	dynamicStmts := make([]*sql.Stmt, 0, len(a.stmts.queryBySortOrder))
	for _, stmt := range a.stmts.queryBySortOrder {
		dynamicStmts = append(dynamicStmts, stmt)
	}
	a.stmts.queryBySortOrder = map[storage.ProductSort]*sql.Stmt{}
	a.stmts.queryMu.Unlock()

	if err := closeStatements(dynamicStmts...); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (a *Adapter) prepareStatements() (err error) {
	db, err := a.requireDB()
	if err != nil {
		return err
	}

	prepared := make([]*sql.Stmt, 0, len(fixedPrepareStatementSpecs))
	defer func() {
		if err != nil {
			_ = closeStatements(prepared...)
		}
	}()

	for _, spec := range fixedPrepareStatementSpecs {
		stmt, prepErr := db.Prepare(spec.query)
		if prepErr != nil {
			err = fmt.Errorf("postgres adapter: prepare %s statement: %w", spec.label, prepErr)
			return err
		}
		prepared = append(prepared, stmt)
		spec.assign(&a.stmts, stmt)
	}
	return nil
}

func (a *Adapter) requirePreparedStatements() error {
	if _, err := a.requireDB(); err != nil {
		return err
	}

	if a.stmts.putAccount == nil || a.stmts.getAccount == nil || a.stmts.getAccountByEmail == nil || a.stmts.deleteAccount == nil {
		return ErrAdapterNotInitialized
	}
	if a.stmts.firstAccountWithRole == nil || a.stmts.listAccounts == nil || a.stmts.updateAccountProfile == nil || a.stmts.updateAccountRole == nil {
		return ErrAdapterNotInitialized
	}
	if a.stmts.putProduct == nil || a.stmts.getProduct == nil || a.stmts.listProductsByOwner == nil {
		return ErrAdapterNotInitialized
	}
	if a.stmts.updateProduct == nil || a.stmts.deleteProduct == nil || a.stmts.purgeCategories == nil {
		return ErrAdapterNotInitialized
	}

	return nil
}

func (a *Adapter) requireDB() (*sql.DB, error) {
	if a == nil || a.db == nil {
		return nil, ErrNilDB
	}
	return a.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeStatements(stmts ...*sql.Stmt) error {
	var errs []error
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// mapConstraintError converts driver-level errors to the storage sentinels.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
