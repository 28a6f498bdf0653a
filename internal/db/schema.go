package db

import (
	"database/sql"
	"fmt"
)

// tables declares every table. Existing tables are left alone; columns added
// in later versions are reconciled by EnsureItemColumns.
const tables = `
CREATE TABLE IF NOT EXISTS inventoryitem (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    barcode     TEXT NOT NULL,
    description TEXT,
    quantity    INTEGER NOT NULL DEFAULT 0,
    sku         TEXT,
    image_url   TEXT,
    image_path  TEXT
);

CREATE TABLE IF NOT EXISTS "transaction" (
    id            INTEGER PRIMARY KEY,
    item_id       INTEGER NOT NULL REFERENCES inventoryitem(id),
    type          TEXT NOT NULL,
    amount        REAL NOT NULL,
    unit_cost     REAL,
    timestamp     DATETIME NOT NULL,
    device_id     TEXT,
    vendor_client TEXT,
    notes         TEXT,
    trans_source  TEXT
);
`

// indexes run after column reconciliation, an old inventoryitem table may
// not have a barcode column until then.
const indexes = `
CREATE UNIQUE INDEX IF NOT EXISTS uq_inventory_item_barcode ON inventoryitem(barcode);
CREATE INDEX IF NOT EXISTS idx_transaction_item_id ON "transaction"(item_id);
`

// EnsureSchema creates all tables and indexes if they don't already exist and
// adds item columns missing from stores created by older versions. It returns
// the names of the columns it added.
func EnsureSchema(db *sql.DB) ([]string, error) {
	if _, err := db.Exec(tables); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	added, err := EnsureItemColumns(db)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(indexes); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}
	return added, nil
}
