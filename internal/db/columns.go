package db

import (
	"database/sql"
	"fmt"
)

// ItemTable is the name of the item table.
const ItemTable = "inventoryitem"

type column struct {
	name string
	def  string
}

// itemColumns are the item columns every version after the first expects.
// Append new ones at the end; entries are never removed.
var itemColumns = []column{
	{"barcode", "TEXT"},
	{"description", "TEXT"},
	{"quantity", "INTEGER DEFAULT 0"},
	{"sku", "TEXT"},
	{"image_url", "TEXT"},
	{"image_path", "TEXT"},
}

// EnsureItemColumns adds any expected column missing from the live item table
// and returns the names it added. It never drops or renames columns and does
// nothing when the table does not exist yet.
func EnsureItemColumns(db *sql.DB) ([]string, error) {
	existing, err := tableColumns(db, ItemTable)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	var added []string
	for _, c := range itemColumns {
		if existing[c.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", ItemTable, c.name, c.def)
		if _, err := db.Exec(stmt); err != nil {
			return added, fmt.Errorf("adding column %s: %w", c.name, err)
		}
		added = append(added, c.name)
	}
	return added, nil
}

// tableColumns returns the column names of table, empty if it does not exist.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
