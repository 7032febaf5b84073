package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gearshop/gearshop/pkg/storage"
)

const (
	putProductQuery = `
INSERT INTO gearshop.products (
  id, date_added, date_modified, name, description, price, category, image, owner_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

	productColumns = `
  id::text, date_added, date_modified, name, description, price, category, image, COALESCE(owner_id::text, '')
`

	getProductQuery = `
SELECT` + productColumns + `
FROM gearshop.products
WHERE id = $1
`

	listProductsByOwnerQuery = `
SELECT` + productColumns + `
FROM gearshop.products
WHERE owner_id = $1
ORDER BY date_added DESC
`

	// updateProductQuery never touches owner_id: ownership is immutable.
	updateProductQuery = `
UPDATE gearshop.products
SET name = $2, description = $3, price = $4, category = $5, image = $6, date_modified = $7
WHERE id = $1
RETURNING` + productColumns + `
`

	deleteProductQuery = `
DELETE FROM gearshop.products
WHERE id = $1
RETURNING` + productColumns + `
`

	purgeCategoriesQuery = `
DELETE FROM gearshop.products
WHERE category = ANY($1::text[])
`

	queryProductsBaseQuery = `
SELECT` + productColumns + `
FROM gearshop.products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND (cardinality($2::text[]) = 0 OR category = ANY($2::text[]))
ORDER BY `
)

var sortOrderClauses = map[storage.ProductSort]string{
	storage.SortLatest:    "date_added DESC",
	storage.SortPriceAsc:  "price ASC, date_added DESC",
	storage.SortPriceDesc: "price DESC, date_added DESC",
	storage.SortNameAsc:   "name ASC",
	storage.SortNameDesc:  "name DESC",
}

func (a *Adapter) PutProduct(ctx context.Context, record storage.ProductRecord) error {
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

	var ownerID *string
	if record.OwnerID != "" {
		ownerID = &record.OwnerID
	}

	_, err := a.stmts.putProduct.ExecContext(
		ctx,
		record.ID,
		dateAdded,
		dateModified,
		record.Name,
		record.Description,
		record.Price,
		record.Category,
		record.Image,
		ownerID,
	)
	return mapConstraintError(err)
}

func (a *Adapter) GetProduct(ctx context.Context, id string) (storage.ProductRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.ProductRecord{}, err
	}

	return scanProduct(a.stmts.getProduct.QueryRowContext(ctx, id))
}

func (a *Adapter) QueryProducts(ctx context.Context, query storage.ProductQuery) ([]storage.ProductRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}

	stmt, err := a.queryStatementForSort(query.Sort)
	if err != nil {
		return nil, err
	}

	categories := query.Categories
	if categories == nil {
		categories = []string{}
	}

	rows, err := stmt.QueryContext(ctx, query.NameSubstring, categories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (a *Adapter) ListProductsByOwner(ctx context.Context, ownerID string) ([]storage.ProductRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, nil
	}

	rows, err := a.stmts.listProductsByOwner.QueryContext(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (a *Adapter) UpdateProduct(ctx context.Context, id string, patch storage.ProductPatch) (storage.ProductRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.ProductRecord{}, err
	}

	return scanProduct(a.stmts.updateProduct.QueryRowContext(
		ctx,
		id,
		patch.Name,
		patch.Description,
		patch.Price,
		patch.Category,
		patch.Image,
		time.Now().UTC(),
	))
}

func (a *Adapter) DeleteProduct(ctx context.Context, id string) (storage.ProductRecord, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return storage.ProductRecord{}, err
	}

	return scanProduct(a.stmts.deleteProduct.QueryRowContext(ctx, id))
}

func (a *Adapter) PurgeCategories(ctx context.Context, categories []string) (int64, error) {
	if err := a.requirePreparedStatements(); err != nil {
		return 0, err
	}
	if len(categories) == 0 {
		return 0, nil
	}

	result, err := a.stmts.purgeCategories.ExecContext(ctx, categories)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryStatementForSort prepares one statement per sort order on first use
// and reuses it afterwards.
func (a *Adapter) queryStatementForSort(order storage.ProductSort) (*sql.Stmt, error) {
	clause, ok := sortOrderClauses[order]
	if !ok {
		clause = sortOrderClauses[storage.SortLatest]
		order = storage.SortLatest
	}

	a.stmts.queryMu.Lock()
	defer a.stmts.queryMu.Unlock()

	if stmt, ok := a.stmts.queryBySortOrder[order]; ok {
		return stmt, nil
	}

	db, err := a.requireDB()
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare(queryProductsBaseQuery + clause)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: prepare query products (%s) statement: %w", order, err)
	}

	a.stmts.queryBySortOrder[order] = stmt
	return stmt, nil
}

func collectProducts(rows *sql.Rows) ([]storage.ProductRecord, error) {
	records := make([]storage.ProductRecord, 0)
	for rows.Next() {
		record, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanProduct(row scanner) (storage.ProductRecord, error) {
	var record storage.ProductRecord
	var dateModified sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.DateAdded,
		&dateModified,
		&record.Name,
		&record.Description,
		&record.Price,
		&record.Category,
		&record.Image,
		&record.OwnerID,
	)
	if err != nil {
		return storage.ProductRecord{}, mapConstraintError(err)
	}

	if dateModified.Valid {
		modified := dateModified.Time
		record.DateModified = &modified
	}
	return record, nil
}
