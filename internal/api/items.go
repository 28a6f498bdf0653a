package api

import (
	"database/sql"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/imaging"
	"github.com/aarnt28/inventory-app/internal/model"
	"github.com/aarnt28/inventory-app/internal/store"
	"github.com/aarnt28/inventory-app/internal/uploads"
)

// maxMemory is how much of a multipart form is kept in memory; the rest
// spills to temporary files.
const maxMemory = 32 << 20

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	DB      *sql.DB
	Uploads *uploads.Dir
}

// uploadsBase returns the absolute URL the uploads mount is reachable at for
// the client that sent r.
func uploadsBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/uploads"
}

func withPreview(item *model.Item, r *http.Request) *model.Item {
	item.PreviewURL = item.Preview(uploadsBase(r))
	return item
}

// optionalString maps an empty form value to nil.
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// List handles GET /api/items/.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	for i := range items {
		withPreview(&items[i], r)
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items/. The body is a form; the image is either an
// image_file upload or an image_url, never both.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	name := r.FormValue("name")
	barcode := r.FormValue("barcode")
	if strings.TrimSpace(name) == "" || strings.TrimSpace(barcode) == "" {
		jsonError(w, http.StatusBadRequest, "name and barcode required")
		return
	}

	quantity := 0
	if v := strings.TrimSpace(r.FormValue("quantity")); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "quantity must be an integer")
			return
		}
		quantity = q
	}

	imageURL := r.FormValue("image_url")
	if strings.TrimSpace(imageURL) == "" {
		imageURL = ""
	}

	file, header, err := r.FormFile("image_file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		jsonError(w, http.StatusBadRequest, "invalid image_file")
		return
	}
	if file != nil {
		defer file.Close()
	}

	if file != nil && imageURL != "" {
		jsonError(w, http.StatusBadRequest, "provide either an image upload or an image URL, not both")
		return
	}

	exists, err := store.BarcodeExists(r.Context(), h.DB, barcode)
	if err != nil {
		storeError(w, err, "create item")
		return
	}
	if exists {
		jsonError(w, http.StatusBadRequest, "barcode already exists")
		return
	}

	var imagePath *string
	if file != nil {
		stored, err := h.Uploads.Save(file, header.Filename)
		if errors.Is(err, imaging.ErrTooLarge) {
			jsonError(w, http.StatusBadRequest, "image dimensions too large")
			return
		}
		if err != nil {
			zap.L().Error("failed to store upload", zap.Error(err))
			jsonError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
		imagePath = &stored
	}

	item, err := store.CreateItem(r.Context(), h.DB, model.Item{
		Name:        name,
		Barcode:     barcode,
		Description: optionalString(r.FormValue("description")),
		Quantity:    quantity,
		SKU:         optionalString(r.FormValue("sku")),
		ImageURL:    optionalString(imageURL),
		ImagePath:   imagePath,
	})
	if err != nil {
		// The record never landed; drop the file written for it.
		if imagePath != nil {
			if rmErr := h.Uploads.Remove(*imagePath); rmErr != nil {
				zap.L().Warn("failed to remove orphaned upload", zap.String("file", *imagePath), zap.Error(rmErr))
			}
		}
		storeError(w, err, "create item")
		return
	}

	zap.L().Info("item created", zap.String("barcode", item.Barcode), zap.String("name", item.Name))
	jsonResponse(w, http.StatusCreated, withPreview(item, r))
}

// Get handles GET /api/items/{barcode}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItemByBarcode(r.Context(), h.DB, r.PathValue("barcode"))
	if err != nil {
		storeError(w, err, "get item")
		return
	}
	jsonResponse(w, http.StatusOK, withPreview(item, r))
}

// Update handles PATCH /api/items/{barcode}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.ItemUpdate
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, r.PathValue("barcode"), req)
	if err != nil {
		storeError(w, err, "update item")
		return
	}

	zap.L().Info("item updated", zap.String("barcode", item.Barcode))
	jsonResponse(w, http.StatusOK, withPreview(item, r))
}

// Delete handles DELETE /api/items/{barcode}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, err := store.DeleteItem(r.Context(), h.DB, r.PathValue("barcode"))
	if err != nil {
		storeError(w, err, "delete item")
		return
	}

	if item.ImagePath != nil && *item.ImagePath != "" {
		if err := h.Uploads.Remove(*item.ImagePath); err != nil {
			zap.L().Warn("failed to remove item image", zap.String("file", *item.ImagePath), zap.Error(err))
		}
	}

	zap.L().Info("item deleted", zap.String("barcode", item.Barcode))
	w.WriteHeader(http.StatusNoContent)
}

// parseForm parses multipart and urlencoded bodies alike.
func parseForm(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return r.ParseMultipartForm(maxMemory)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	// FormFile expects a multipart form even when there is none.
	r.MultipartForm = &multipart.Form{}
	return nil
}
