package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aarnt28/inventory-app/internal/model"
)

const transactionSelect = `SELECT t.id, t.item_id, t.type, t.amount, t.unit_cost, t.timestamp,
	        t.device_id, t.vendor_client, t.notes, t.trans_source,
	        COALESCE(i.barcode, '') AS barcode
	 FROM "transaction" t
	 LEFT JOIN inventoryitem i ON i.id = t.item_id`

func scanTransaction(s rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	if err := s.Scan(&t.ID, &t.ItemID, &t.Type, &t.Amount, &t.UnitCost, &t.Timestamp,
		&t.DeviceID, &t.VendorClient, &t.Notes, &t.TransSource, &t.Barcode); err != nil {
		return nil, err
	}
	return t, nil
}

func getTransaction(ctx context.Context, q queryer, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, transactionSelect+" WHERE t.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// itemIDForBarcode resolves a barcode to its item id.
func itemIDForBarcode(ctx context.Context, q queryer, barcode string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM inventoryitem WHERE barcode = ?`, barcode).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolving barcode: %w", err)
	}
	return id, nil
}

// CreateTransaction records a transaction against the item with in.Barcode.
// The timestamp is assigned here and the item's quantity is left untouched.
func CreateTransaction(ctx context.Context, db *sql.DB, in model.TransactionInput) (*model.Transaction, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, fmt.Errorf("%w: type required", ErrInvalid)
	}

	transSource := model.DefaultTransSource
	if in.TransSource != nil && *in.TransSource != "" {
		transSource = *in.TransSource
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	itemID, err := itemIDForBarcode(ctx, tx, in.Barcode)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO "transaction"
		     (item_id, type, amount, unit_cost, timestamp, device_id, vendor_client, notes, trans_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		itemID, in.Type, in.Amount, in.UnitCost, time.Now().UTC(),
		in.DeviceID, in.VendorClient, in.Notes, transSource,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transaction id: %w", err)
	}

	t, err := getTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return t, nil
}

// GetTransaction returns a transaction by id.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	return getTransaction(ctx, db, id)
}

// ListTransactions returns transactions ordered by id, optionally only those
// of one item.
func ListTransactions(ctx context.Context, db *sql.DB, itemID int64) ([]model.Transaction, error) {
	query := transactionSelect
	var args []any
	if itemID > 0 {
		query += ` WHERE t.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY t.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// UpdateTransaction applies the fields set in upd. A set barcode must resolve
// to an existing item, otherwise nothing is changed.
func UpdateTransaction(ctx context.Context, db *sql.DB, id int64, upd model.TransactionUpdate) (*model.Transaction, error) {
	if upd.Type.Set && (!upd.Type.Valid || strings.TrimSpace(upd.Type.Value) == "") {
		return nil, fmt.Errorf("%w: type cannot be empty", ErrInvalid)
	}
	if upd.Amount.Set && !upd.Amount.Valid {
		return nil, fmt.Errorf("%w: amount cannot be null", ErrInvalid)
	}
	if upd.Barcode.Set && !upd.Barcode.Valid {
		return nil, fmt.Errorf("%w: barcode cannot be null", ErrInvalid)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getTransaction(ctx, tx, id); err != nil {
		return nil, err
	}

	var set setList
	if upd.Barcode.Set {
		itemID, err := itemIDForBarcode(ctx, tx, upd.Barcode.Value)
		if err != nil {
			return nil, err
		}
		set.add("item_id", itemID)
	}
	if upd.Type.Set {
		set.add("type", upd.Type.Value)
	}
	if upd.Amount.Set {
		set.add("amount", upd.Amount.Value)
	}
	if upd.UnitCost.Set {
		set.add("unit_cost", upd.UnitCost.Ptr())
	}
	if upd.DeviceID.Set {
		set.add("device_id", upd.DeviceID.Ptr())
	}
	if upd.VendorClient.Set {
		set.add("vendor_client", upd.VendorClient.Ptr())
	}
	if upd.Notes.Set {
		set.add("notes", upd.Notes.Ptr())
	}
	if upd.TransSource.Set {
		set.add("trans_source", upd.TransSource.Ptr())
	}

	if !set.empty() {
		_, err = tx.ExecContext(ctx,
			`UPDATE "transaction" SET `+strings.Join(set.cols, ", ")+` WHERE id = ?`,
			append(set.args, id)...,
		)
		if err != nil {
			return nil, fmt.Errorf("updating transaction: %w", err)
		}
	}

	t, err := getTransaction(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction update: %w", err)
	}
	return t, nil
}

// DeleteTransaction removes a transaction by id.
func DeleteTransaction(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM "transaction" WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
