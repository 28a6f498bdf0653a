package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/model"
	"github.com/aarnt28/inventory-app/internal/store"
	"github.com/aarnt28/inventory-app/internal/uploads"
)

var errInvalidID = errors.New("invalid id")

// Cell is one rendered value. Href turns it into a link.
type Cell struct {
	Label string
	Value any
	Href  string
}

// Row is one record in a list page.
type Row struct {
	ID    string
	Cells []Cell
}

// FormField is one input of a create or edit form.
type FormField struct {
	Name     string
	Label    string
	Value    string
	Type     string // text, number, url or textarea
	Step     string
	Required bool
	ReadOnly bool
}

// View exposes one table to the admin pages. Implementations only call
// store operations.
type View interface {
	// Name is the URL segment, e.g. "items".
	Name() string
	Title() string
	Columns() []string
	Count(ctx context.Context) (int, error)
	Rows(ctx context.Context) ([]Row, error)
	// Detail returns the labelled fields of one record and its display name.
	Detail(ctx context.Context, id string) (string, []Cell, error)
	Delete(ctx context.Context, id string) error
	// Form returns the edit form of a record, or the empty create form
	// when id is "".
	Form(ctx context.Context, id string) ([]FormField, error)
	Create(ctx context.Context, form url.Values) (int64, error)
	Update(ctx context.Context, id string, form url.Values) error
}

// itemFilter is implemented by views whose rows can be narrowed to one item.
type itemFilter interface {
	RowsForItem(ctx context.Context, itemID int64) ([]Row, error)
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, errInvalidID
	}
	return n, nil
}

func detailHref(view string, id int64) string {
	return "/admin/" + view + "/" + strconv.FormatInt(id, 10)
}

type itemsView struct {
	db      *sql.DB
	uploads *uploads.Dir
}

func (itemsView) Name() string  { return "items" }
func (itemsView) Title() string { return "Inventory items" }

func (itemsView) Columns() []string {
	return []string{"ID", "Name", "Barcode", "Quantity", "SKU", "Image"}
}

func (v itemsView) Count(ctx context.Context) (int, error) {
	return store.CountItems(ctx, v.db)
}

func (v itemsView) Rows(ctx context.Context) ([]Row, error) {
	items, err := store.ListItems(ctx, v.db)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		preview := item.Preview("/uploads")
		rows = append(rows, Row{
			ID: strconv.FormatInt(item.ID, 10),
			Cells: []Cell{
				{Value: item.ID, Href: detailHref("items", item.ID)},
				{Value: item.Name},
				{Value: item.Barcode},
				{Value: item.Quantity},
				{Value: item.SKU},
				{Value: preview, Href: preview},
			},
		})
	}
	return rows, nil
}

func (v itemsView) Detail(ctx context.Context, id string) (string, []Cell, error) {
	n, err := parseID(id)
	if err != nil {
		return "", nil, err
	}
	item, err := store.GetItem(ctx, v.db, n)
	if err != nil {
		return "", nil, err
	}
	preview := item.Preview("/uploads")
	return item.Name, []Cell{
		{Label: "ID", Value: item.ID},
		{Label: "Name", Value: item.Name},
		{Label: "Barcode", Value: item.Barcode},
		{Label: "Description", Value: item.Description},
		{Label: "Quantity", Value: item.Quantity},
		{Label: "SKU", Value: item.SKU},
		{Label: "Image URL", Value: item.ImageURL},
		{Label: "Image path", Value: item.ImagePath},
		{Label: "Preview", Value: preview, Href: preview},
		{Label: "Transactions", Value: "show", Href: "/admin/transactions/?item_id=" + id},
	}, nil
}

func (v itemsView) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	item, err := store.GetItem(ctx, v.db, n)
	if err != nil {
		return err
	}
	deleted, err := store.DeleteItem(ctx, v.db, item.Barcode)
	if err != nil {
		return err
	}
	if deleted.ImagePath != nil && *deleted.ImagePath != "" {
		if err := v.uploads.Remove(*deleted.ImagePath); err != nil {
			zap.L().Warn("failed to remove item image", zap.String("file", *deleted.ImagePath), zap.Error(err))
		}
	}
	return nil
}

type transactionsView struct {
	db *sql.DB
}

func (transactionsView) Name() string  { return "transactions" }
func (transactionsView) Title() string { return "Transactions" }

func (transactionsView) Columns() []string {
	return []string{"ID", "Item", "Type", "Amount", "Unit cost", "When", "Source"}
}

func (v transactionsView) Count(ctx context.Context) (int, error) {
	return store.CountTransactions(ctx, v.db)
}

func (v transactionsView) Rows(ctx context.Context) ([]Row, error) {
	return v.RowsForItem(ctx, 0)
}

// RowsForItem lists only the transactions of one item; 0 lists all.
func (v transactionsView) RowsForItem(ctx context.Context, itemID int64) ([]Row, error) {
	transactions, err := store.ListTransactions(ctx, v.db, itemID)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, Row{
			ID: strconv.FormatInt(t.ID, 10),
			Cells: []Cell{
				{Value: t.ID, Href: detailHref("transactions", t.ID)},
				{Value: itemLabel(t), Href: detailHref("items", t.ItemID)},
				{Value: t.Type},
				{Value: t.Amount},
				{Value: t.UnitCost},
				{Value: t.Timestamp},
				{Value: t.TransSource},
			},
		})
	}
	return rows, nil
}

func itemLabel(t model.Transaction) string {
	if t.Barcode == "" {
		return "#" + strconv.FormatInt(t.ItemID, 10)
	}
	return t.Barcode
}

func (v transactionsView) Detail(ctx context.Context, id string) (string, []Cell, error) {
	n, err := parseID(id)
	if err != nil {
		return "", nil, err
	}
	t, err := store.GetTransaction(ctx, v.db, n)
	if err != nil {
		return "", nil, err
	}
	return "Transaction #" + id, []Cell{
		{Label: "ID", Value: t.ID},
		{Label: "Item", Value: itemLabel(*t), Href: detailHref("items", t.ItemID)},
		{Label: "Type", Value: t.Type},
		{Label: "Amount", Value: t.Amount},
		{Label: "Unit cost", Value: t.UnitCost},
		{Label: "Timestamp", Value: t.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")},
		{Label: "Device", Value: t.DeviceID},
		{Label: "Vendor/client", Value: t.VendorClient},
		{Label: "Notes", Value: t.Notes},
		{Label: "Source", Value: t.TransSource},
	}, nil
}

func (v transactionsView) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	return store.DeleteTransaction(ctx, v.db, n)
}

// optionalText maps a blank form value to nil.
func optionalText(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// nullableText maps a blank form value to a cleared column.
func nullableText(v string) model.Optional[string] {
	if strings.TrimSpace(v) == "" {
		return model.Null[string]()
	}
	return model.Some(v)
}

func parseFloat(form url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(form.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", store.ErrInvalid, name)
	}
	return &f, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func (v itemsView) Form(ctx context.Context, id string) ([]FormField, error) {
	item := &model.Item{}
	if id != "" {
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		if item, err = store.GetItem(ctx, v.db, n); err != nil {
			return nil, err
		}
	}
	return []FormField{
		{Name: "name", Label: "Name", Value: item.Name, Type: "text", Required: true},
		{Name: "barcode", Label: "Barcode", Value: item.Barcode, Type: "text", Required: true, ReadOnly: id != ""},
		{Name: "description", Label: "Description", Value: deref(item.Description), Type: "textarea"},
		{Name: "quantity", Label: "Quantity", Value: strconv.Itoa(item.Quantity), Type: "number", Step: "1"},
		{Name: "sku", Label: "SKU", Value: deref(item.SKU), Type: "text"},
		{Name: "image_url", Label: "Image URL", Value: deref(item.ImageURL), Type: "url"},
	}, nil
}

func parseQuantity(form url.Values) (int, bool, error) {
	v := strings.TrimSpace(form.Get("quantity"))
	if v == "" {
		return 0, false, nil
	}
	q, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: quantity must be an integer", store.ErrInvalid)
	}
	return q, true, nil
}

func (v itemsView) Create(ctx context.Context, form url.Values) (int64, error) {
	quantity, _, err := parseQuantity(form)
	if err != nil {
		return 0, err
	}
	item, err := store.CreateItem(ctx, v.db, model.Item{
		Name:        form.Get("name"),
		Barcode:     form.Get("barcode"),
		Description: optionalText(form.Get("description")),
		Quantity:    quantity,
		SKU:         optionalText(form.Get("sku")),
		ImageURL:    optionalText(form.Get("image_url")),
	})
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

func (v itemsView) Update(ctx context.Context, id string, form url.Values) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	quantity, ok, err := parseQuantity(form)
	if err != nil {
		return err
	}
	item, err := store.GetItem(ctx, v.db, n)
	if err != nil {
		return err
	}

	upd := model.ItemUpdate{
		Name:        model.Some(form.Get("name")),
		Description: nullableText(form.Get("description")),
		SKU:         nullableText(form.Get("sku")),
		ImageURL:    nullableText(form.Get("image_url")),
	}
	if ok {
		upd.Quantity = model.Some(quantity)
	}
	_, err = store.UpdateItem(ctx, v.db, item.Barcode, upd)
	return err
}

func (v transactionsView) Form(ctx context.Context, id string) ([]FormField, error) {
	t := &model.Transaction{Type: model.TransactionTypeAdd}
	amount, unitCost := "", ""
	if id != "" {
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		if t, err = store.GetTransaction(ctx, v.db, n); err != nil {
			return nil, err
		}
		amount = formatFloat(t.Amount)
		if t.UnitCost != nil {
			unitCost = formatFloat(*t.UnitCost)
		}
	}
	return []FormField{
		{Name: "barcode", Label: "Item barcode", Value: t.Barcode, Type: "text", Required: true},
		{Name: "type", Label: "Type", Value: t.Type, Type: "text", Required: true},
		{Name: "amount", Label: "Amount", Value: amount, Type: "number", Step: "any", Required: true},
		{Name: "unit_cost", Label: "Unit cost", Value: unitCost, Type: "number", Step: "any"},
		{Name: "device_id", Label: "Device", Value: deref(t.DeviceID), Type: "text"},
		{Name: "vendor_client", Label: "Vendor/client", Value: deref(t.VendorClient), Type: "text"},
		{Name: "notes", Label: "Notes", Value: deref(t.Notes), Type: "textarea"},
		{Name: "trans_source", Label: "Source", Value: deref(t.TransSource), Type: "text"},
	}, nil
}

// transactionForm parses the fields shared by create and edit.
func transactionForm(form url.Values) (barcode string, amount float64, unitCost *float64, err error) {
	barcode = form.Get("barcode")
	if strings.TrimSpace(barcode) == "" {
		return "", 0, nil, fmt.Errorf("%w: barcode required", store.ErrInvalid)
	}
	a, err := parseFloat(form, "amount")
	if err != nil {
		return "", 0, nil, err
	}
	if a == nil {
		return "", 0, nil, fmt.Errorf("%w: amount required", store.ErrInvalid)
	}
	unitCost, err = parseFloat(form, "unit_cost")
	if err != nil {
		return "", 0, nil, err
	}
	return barcode, *a, unitCost, nil
}

func (v transactionsView) Create(ctx context.Context, form url.Values) (int64, error) {
	barcode, amount, unitCost, err := transactionForm(form)
	if err != nil {
		return 0, err
	}
	t, err := store.CreateTransaction(ctx, v.db, model.TransactionInput{
		Barcode:      barcode,
		Type:         form.Get("type"),
		Amount:       amount,
		UnitCost:     unitCost,
		DeviceID:     optionalText(form.Get("device_id")),
		VendorClient: optionalText(form.Get("vendor_client")),
		Notes:        optionalText(form.Get("notes")),
		TransSource:  optionalText(form.Get("trans_source")),
	})
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (v transactionsView) Update(ctx context.Context, id string, form url.Values) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	barcode, amount, unitCost, err := transactionForm(form)
	if err != nil {
		return err
	}

	upd := model.TransactionUpdate{
		Barcode:      model.Some(barcode),
		Type:         model.Some(form.Get("type")),
		Amount:       model.Some(amount),
		UnitCost:     model.Null[float64](),
		DeviceID:     nullableText(form.Get("device_id")),
		VendorClient: nullableText(form.Get("vendor_client")),
		Notes:        nullableText(form.Get("notes")),
		TransSource:  nullableText(form.Get("trans_source")),
	}
	if unitCost != nil {
		upd.UnitCost = model.Some(*unitCost)
	}
	_, err = store.UpdateTransaction(ctx, v.db, n, upd)
	return err
}
