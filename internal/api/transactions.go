package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/model"
	"github.com/aarnt28/inventory-app/internal/store"
)

// TransactionsHandler handles transaction CRUD endpoints.
type TransactionsHandler struct {
	DB *sql.DB
}

type createTransactionRequest struct {
	Barcode      string   `json:"barcode" validate:"required"`
	Amount       *float64 `json:"amount" validate:"required"`
	Type         string   `json:"type" validate:"required"`
	UnitCost     *float64 `json:"unit_cost"`
	DeviceID     *string  `json:"device_id"`
	VendorClient *string  `json:"vendor_client"`
	Notes        *string  `json:"notes"`
	TransSource  *string  `json:"trans_source"`
}

func transactionID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// Create handles POST /api/transactions/.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	t, err := store.CreateTransaction(r.Context(), h.DB, model.TransactionInput{
		Barcode:      req.Barcode,
		Type:         req.Type,
		Amount:       *req.Amount,
		UnitCost:     req.UnitCost,
		DeviceID:     req.DeviceID,
		VendorClient: req.VendorClient,
		Notes:        req.Notes,
		TransSource:  req.TransSource,
	})
	if err != nil {
		storeError(w, err, "create transaction")
		return
	}

	zap.L().Info("transaction created",
		zap.Int64("id", t.ID), zap.String("barcode", t.Barcode),
		zap.String("type", t.Type), zap.Float64("amount", t.Amount))
	jsonResponse(w, http.StatusCreated, t)
}

// List handles GET /api/transactions/.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var itemID int64
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		itemID = id
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, itemID)
	if err != nil {
		storeError(w, err, "list transactions")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, transactions)
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	t, err := store.GetTransaction(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get transaction")
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Update handles PATCH /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req model.TransactionUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := store.UpdateTransaction(r.Context(), h.DB, id, req)
	if err != nil {
		storeError(w, err, "update transaction")
		return
	}

	zap.L().Info("transaction updated", zap.Int64("id", t.ID), zap.String("barcode", t.Barcode))
	jsonResponse(w, http.StatusOK, t)
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := store.DeleteTransaction(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete transaction")
		return
	}

	zap.L().Info("transaction deleted", zap.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}
