package web

import (
	"database/sql"
	"net/http"

	"github.com/aarnt28/inventory-app/internal/uploads"
	webembed "github.com/aarnt28/inventory-app/web"
)

// NewRouter creates the admin router. All routes live under /admin/. The
// create form is the record id "new" on the detail and save routes, since a
// literal /admin/{view}/new would overlap the static route.
func NewRouter(db *sql.DB, files *uploads.Dir) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{Templates: templates}
	s.Register(itemsView{db: db, uploads: files})
	s.Register(transactionsView{db: db})

	mux := http.NewServeMux()

	mux.Handle("GET /admin/static/{file}", http.StripPrefix("/admin/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	mux.HandleFunc("GET /admin/{$}", s.Index)
	mux.HandleFunc("GET /admin/{view}/{$}", s.ListPage)
	mux.HandleFunc("GET /admin/{view}/{id}", s.DetailPage)
	mux.HandleFunc("POST /admin/{view}/{id}", s.SaveSubmit)
	mux.HandleFunc("GET /admin/{view}/{id}/edit", s.EditPage)
	mux.HandleFunc("POST /admin/{view}/{id}/delete", s.DeleteSubmit)

	mux.Handle("GET /admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))

	return mux, nil
}

// Register adds a view to the admin. Views appear in registration order.
func (s *Server) Register(v View) {
	if s.byName == nil {
		s.byName = make(map[string]View)
	}
	s.views = append(s.views, v)
	s.byName[v.Name()] = v
}
