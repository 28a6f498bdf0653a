package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/uploads"
)

// NewRouter creates the API router with all endpoints registered, plus the
// uploads mount and the health check.
func NewRouter(db *sql.DB, files *uploads.Dir) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{DB: db, Uploads: files}
	transactionsHandler := &TransactionsHandler{DB: db}

	// Collections answer with and without the trailing slash.
	for _, p := range []string{"/api/items", "/api/items/{$}"} {
		mux.HandleFunc("GET "+p, itemsHandler.List)
		mux.HandleFunc("POST "+p, itemsHandler.Create)
	}
	mux.HandleFunc("GET /api/items/{barcode}", itemsHandler.Get)
	mux.HandleFunc("PATCH /api/items/{barcode}", itemsHandler.Update)
	mux.HandleFunc("DELETE /api/items/{barcode}", itemsHandler.Delete)

	for _, p := range []string{"/api/transactions", "/api/transactions/{$}"} {
		mux.HandleFunc("GET "+p, transactionsHandler.List)
		mux.HandleFunc("POST "+p, transactionsHandler.Create)
	}
	mux.HandleFunc("GET /api/transactions/{id}", transactionsHandler.Get)
	mux.HandleFunc("PATCH /api/transactions/{id}", transactionsHandler.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.Delete)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads", files.Handler()))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			zap.L().Error("health check failed", zap.Error(err))
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
