package model

import "time"

// Transaction records a stock event against an item.
type Transaction struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	UnitCost     *float64  `json:"unit_cost"`
	Timestamp    time.Time `json:"timestamp"`
	DeviceID     *string   `json:"device_id"`
	VendorClient *string   `json:"vendor_client"`
	Notes        *string   `json:"notes"`
	TransSource  *string   `json:"trans_source"`

	// Joined from the item, empty if the item row is gone.
	Barcode string `json:"barcode"`
}

// Common transaction types. Any other tag is accepted as well.
const (
	TransactionTypeAdd    = "add"
	TransactionTypeUse    = "use"
	TransactionTypeAdjust = "adjust"
)

// DefaultTransSource is recorded when a new transaction names no source.
const DefaultTransSource = "shortcut"

// TransactionInput holds the fields of a new transaction. The item is named
// by barcode, not by id.
type TransactionInput struct {
	Barcode      string
	Type         string
	Amount       float64
	UnitCost     *float64
	DeviceID     *string
	VendorClient *string
	Notes        *string
	TransSource  *string
}

// TransactionUpdate is a partial transaction update. A set Barcode moves the
// transaction to that item.
type TransactionUpdate struct {
	Barcode      Optional[string]  `json:"barcode"`
	Type         Optional[string]  `json:"type"`
	Amount       Optional[float64] `json:"amount"`
	UnitCost     Optional[float64] `json:"unit_cost"`
	DeviceID     Optional[string]  `json:"device_id"`
	VendorClient Optional[string]  `json:"vendor_client"`
	Notes        Optional[string]  `json:"notes"`
	TransSource  Optional[string]  `json:"trans_source"`
}
