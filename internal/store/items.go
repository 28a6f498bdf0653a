package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aarnt28/inventory-app/internal/model"
)

const itemSelect = `SELECT id, name, barcode, description, quantity, sku, image_url, image_path
	FROM inventoryitem`

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	// Rows from before barcode and quantity existed may hold NULLs.
	var barcode sql.NullString
	var quantity sql.NullInt64
	if err := s.Scan(&item.ID, &item.Name, &barcode, &item.Description, &quantity,
		&item.SKU, &item.ImageURL, &item.ImagePath); err != nil {
		return nil, err
	}
	item.Barcode = barcode.String
	item.Quantity = int(quantity.Int64)
	return item, nil
}

func getItemWhere(ctx context.Context, q queryer, where string, arg any) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+" WHERE "+where, arg))
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by id.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, itemSelect+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItem returns an item by id.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItemWhere(ctx, db, "id = ?", id)
}

// GetItemByBarcode returns the item with the given barcode.
func GetItemByBarcode(ctx context.Context, db *sql.DB, barcode string) (*model.Item, error) {
	return getItemWhere(ctx, db, "barcode = ?", barcode)
}

// BarcodeExists reports whether an item already uses barcode.
func BarcodeExists(ctx context.Context, db *sql.DB, barcode string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventoryitem WHERE barcode = ?`, barcode,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking barcode: %w", err)
	}
	return n > 0, nil
}

// CreateItem inserts a new item. The barcode pre-check gives the common case a
// clean error; the unique index catches concurrent inserts that slip past it.
func CreateItem(ctx context.Context, db *sql.DB, item model.Item) (*model.Item, error) {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Barcode) == "" {
		return nil, fmt.Errorf("%w: name and barcode required", ErrInvalid)
	}

	exists, err := BarcodeExists(ctx, db, item.Barcode)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateBarcode
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO inventoryitem (name, barcode, description, quantity, sku, image_url, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Barcode, item.Description, item.Quantity, item.SKU, item.ImageURL, item.ImagePath,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateBarcode
	}
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// UpdateItem applies the fields set in upd to the item with the given barcode.
func UpdateItem(ctx context.Context, db *sql.DB, barcode string, upd model.ItemUpdate) (*model.Item, error) {
	if upd.Name.Set && (!upd.Name.Valid || strings.TrimSpace(upd.Name.Value) == "") {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if upd.Quantity.Set && !upd.Quantity.Valid {
		return nil, fmt.Errorf("%w: quantity cannot be null", ErrInvalid)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItemWhere(ctx, tx, "barcode = ?", barcode)
	if err != nil {
		return nil, err
	}

	var set setList
	if upd.Name.Set {
		set.add("name", upd.Name.Value)
	}
	if upd.Description.Set {
		set.add("description", upd.Description.Ptr())
	}
	if upd.Quantity.Set {
		set.add("quantity", upd.Quantity.Value)
	}
	if upd.SKU.Set {
		set.add("sku", upd.SKU.Ptr())
	}
	if upd.ImageURL.Set {
		set.add("image_url", upd.ImageURL.Ptr())
	}
	if set.empty() {
		return item, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE inventoryitem SET "+strings.Join(set.cols, ", ")+" WHERE id = ?",
		append(set.args, item.ID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	item, err = getItemWhere(ctx, tx, "id = ?", item.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}
	return item, nil
}

// DeleteItem removes the item with the given barcode and returns the removed
// row. Items still referenced by transactions are not deleted.
func DeleteItem(ctx context.Context, db *sql.DB, barcode string) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItemWhere(ctx, tx, "barcode = ?", barcode)
	if err != nil {
		return nil, err
	}

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM "transaction" WHERE item_id = ?`, item.ID,
	).Scan(&refs)
	if err != nil {
		return nil, fmt.Errorf("counting item transactions: %w", err)
	}
	if refs > 0 {
		return nil, fmt.Errorf("%w: %d referencing", ErrItemInUse, refs)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventoryitem WHERE id = ?`, item.ID); err != nil {
		return nil, fmt.Errorf("deleting item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item delete: %w", err)
	}
	return item, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrTransactionNotFound)
}
