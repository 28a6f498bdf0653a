package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aarnt28/inventory-app/internal/db"
	"github.com/aarnt28/inventory-app/internal/model"
	"github.com/aarnt28/inventory-app/internal/uploads"
)

type testEnv struct {
	server  *httptest.Server
	db      *sql.DB
	uploads *uploads.Dir
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	files, err := uploads.New(t.TempDir())
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(database, files))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: database, uploads: files}
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image_file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) createItem(t *testing.T, fields map[string]string, fileName string, fileData []byte) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, fileName, fileData)
	resp, err := http.Post(e.server.URL+"/api/items/", contentType, body)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func uploadCount(t *testing.T, dir *uploads.Dir) int {
	t.Helper()
	entries, err := os.ReadDir(dir.Root())
	require.NoError(t, err)
	return len(entries)
}

func TestCreateItemWithoutImage(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{
		"name": "Hex Bolt", "barcode": "12345", "quantity": "12", "sku": "HB-1", "description": "M6",
	}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw := decode[map[string]any](t, resp)
	assert.NotContains(t, raw, "preview_url")
	assert.Equal(t, "12345", raw["barcode"])
	assert.EqualValues(t, 12, raw["quantity"])

	resp = env.do(t, "GET", "/api/items/12345", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item := decode[model.Item](t, resp)
	assert.Equal(t, "Hex Bolt", item.Name)
	assert.Equal(t, "M6", *item.Description)
	assert.Equal(t, "HB-1", *item.SKU)
	assert.NotZero(t, item.ID)
	assert.Empty(t, item.PreviewURL)
}

func TestCreateItemWithImageURL(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{
		"name": "Tape", "barcode": "555", "image_url": "https://cdn.example.com/tape.png",
	}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	item := decode[model.Item](t, env.do(t, "GET", "/api/items/555", nil))
	assert.Equal(t, "https://cdn.example.com/tape.png", item.PreviewURL)
	assert.Nil(t, item.ImagePath)
}

func TestCreateItemWithUpload(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "Glue", "barcode": "777"}, "glue.png", []byte("not really a png"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[model.Item](t, resp)

	require.NotNil(t, item.ImagePath)
	assert.True(t, strings.HasSuffix(*item.ImagePath, ".png"))
	assert.Equal(t, env.server.URL+"/uploads/"+*item.ImagePath, item.PreviewURL)

	img, err := http.Get(item.PreviewURL)
	require.NoError(t, err)
	data, _ := io.ReadAll(img.Body)
	img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "not really a png", string(data))
}

func TestCreateItemBothImageSources(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{
		"name": "Both", "barcode": "b1", "image_url": "https://x/y.png",
	}, "y.png", []byte("data"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/items/b1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, uploadCount(t, env.uploads))
}

func TestCreateItemDuplicateBarcode(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "One", "barcode": "dup"}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.createItem(t, map[string]string{"name": "Two", "barcode": "dup"}, "two.jpg", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decode[map[string]string](t, resp)
	assert.Equal(t, "barcode already exists", errBody["error"])

	items := decode[[]model.Item](t, env.do(t, "GET", "/api/items/", nil))
	assert.Len(t, items, 1)
	assert.Zero(t, uploadCount(t, env.uploads))
}

func TestCreateItemValidation(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "No barcode"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.createItem(t, map[string]string{"name": "X", "barcode": "1", "quantity": "lots"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateItemUrlencoded(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Post(env.server.URL+"/api/items", "application/x-www-form-urlencoded",
		strings.NewReader("name=Nail&barcode=n1&quantity=3"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[model.Item](t, resp)
	assert.Equal(t, 3, item.Quantity)
}

func TestCreateItemRemovesUploadWhenInsertFails(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON inventoryitem
		WHEN NEW.name = 'boom' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	resp := env.createItem(t, map[string]string{"name": "boom", "barcode": "b"}, "boom.png", []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	assert.Zero(t, uploadCount(t, env.uploads))
}

func TestUpdateItemPartial(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{
		"name": "Tape", "barcode": "555", "description": "Duct", "quantity": "3", "sku": "T-1",
	}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	patch := map[string]any{"quantity": 9, "barcode": "ignored"}

	resp = env.do(t, "PATCH", "/api/items/555", patch)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[model.Item](t, resp)
	assert.Equal(t, 9, first.Quantity)
	assert.Equal(t, "555", first.Barcode)
	assert.Equal(t, "Tape", first.Name)
	assert.Equal(t, "Duct", *first.Description)
	assert.Equal(t, "T-1", *first.SKU)

	second := decode[model.Item](t, env.do(t, "PATCH", "/api/items/555", patch))
	assert.Equal(t, first, second)

	resp = env.do(t, "PATCH", "/api/items/555", map[string]any{"name": nil})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "PATCH", "/api/items/missing", patch)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteItem(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "Old", "barcode": "old"}, "old.jpg", []byte("x"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, 1, uploadCount(t, env.uploads))

	resp = env.do(t, "DELETE", "/api/items/old", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, uploadCount(t, env.uploads))

	resp = env.do(t, "DELETE", "/api/items/old", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteItemWithTransactions(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "Busy", "barcode": "busy"}, "", nil)
	resp.Body.Close()
	resp = env.do(t, "POST", "/api/transactions/", map[string]any{"barcode": "busy", "amount": 1, "type": "add"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "DELETE", "/api/items/busy", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestTransactionsAPIFlow(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "Widget", "barcode": "12345"}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[model.Item](t, resp)

	resp = env.do(t, "POST", "/api/transactions/", map[string]any{
		"barcode": "12345", "amount": 5, "type": "add",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Transaction](t, resp)
	assert.Equal(t, item.ID, created.ItemID)
	assert.Equal(t, "12345", created.Barcode)
	assert.Equal(t, 5.0, created.Amount)
	assert.False(t, created.Timestamp.IsZero())
	assert.Equal(t, model.DefaultTransSource, *created.TransSource)

	list := decode[[]model.Transaction](t, env.do(t, "GET", "/api/transactions", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "12345", list[0].Barcode)

	got := decode[model.Transaction](t, env.do(t, "GET", "/api/transactions/"+itoa(created.ID), nil))
	assert.Equal(t, created.ID, got.ID)

	resp = env.do(t, "PATCH", "/api/transactions/"+itoa(created.ID), map[string]any{"notes": "recount", "unit_cost": 1.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Transaction](t, resp)
	assert.Equal(t, "recount", *updated.Notes)
	assert.Equal(t, 1.5, *updated.UnitCost)
	assert.Equal(t, "add", updated.Type)

	resp = env.do(t, "DELETE", "/api/transactions/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "DELETE", "/api/transactions/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateTransactionUnknownBarcode(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/transactions/", map[string]any{"barcode": "ghost", "amount": 1, "type": "use"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	list := decode[[]model.Transaction](t, env.do(t, "GET", "/api/transactions/", nil))
	assert.Empty(t, list)
}

func TestCreateTransactionValidation(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/transactions/", map[string]any{"barcode": "x", "type": "add"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "amount required", body["error"])

	resp = env.do(t, "POST", "/api/transactions/", map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateTransactionUnknownBarcode(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "A", "barcode": "a"}, "", nil)
	item := decode[model.Item](t, resp)
	created := decode[model.Transaction](t, env.do(t, "POST", "/api/transactions/", map[string]any{
		"barcode": "a", "amount": 2, "type": "adjust",
	}))

	resp = env.do(t, "PATCH", "/api/transactions/"+itoa(created.ID), map[string]any{"barcode": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	got := decode[model.Transaction](t, env.do(t, "GET", "/api/transactions/"+itoa(created.ID), nil))
	assert.Equal(t, item.ID, got.ItemID)

	resp = env.do(t, "PATCH", "/api/transactions/999", map[string]any{"amount": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTransactionInvalidID(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "GET", "/api/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateItemRejectsHugeImage(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{"name": "Poster", "barcode": "big"}, "poster.png", pngHeader(20000, 20000))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "image dimensions too large", body["error"])

	resp = env.do(t, "GET", "/api/items/big", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, uploadCount(t, env.uploads))
}

func TestCreateItemStoresValuesAsSupplied(t *testing.T) {
	env := setupTestServer(t)

	resp := env.createItem(t, map[string]string{
		"name": "  Padded Name ", "barcode": "pad", "sku": " SK-1 ", "image_url": " https://x/y.png",
	}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	item := decode[model.Item](t, env.do(t, "GET", "/api/items/pad", nil))
	assert.Equal(t, "  Padded Name ", item.Name)
	assert.Equal(t, " SK-1 ", *item.SKU)
	assert.Equal(t, " https://x/y.png", *item.ImageURL)

	resp = env.createItem(t, map[string]string{"name": "   ", "barcode": "blank"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
