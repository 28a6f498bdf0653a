package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrItemNotFound is returned when no item matches a barcode or id.
	ErrItemNotFound = errors.New("item not found")

	// ErrTransactionNotFound is returned when no transaction matches an id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateBarcode is returned when an item with the barcode already exists.
	ErrDuplicateBarcode = errors.New("barcode already exists")

	// ErrItemInUse is returned when deleting an item that transactions still reference.
	ErrItemInUse = errors.New("item has transactions")

	// ErrInvalid wraps rejected field values.
	ErrInvalid = errors.New("invalid input")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch code := se.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// Primary code only when extended codes are off.
		return strings.Contains(se.Error(), "UNIQUE")
	default:
		return false
	}
}
