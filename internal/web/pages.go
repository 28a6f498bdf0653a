package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aarnt28/inventory-app/internal/store"
)

type viewSummary struct {
	Name  string
	Title string
	Count int
}

// Index handles GET /admin/.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	summaries := make([]viewSummary, 0, len(s.views))
	for _, v := range s.views {
		n, err := v.Count(r.Context())
		if err != nil {
			zap.L().Error("failed to count rows", zap.String("view", v.Name()), zap.Error(err))
		}
		summaries = append(summaries, viewSummary{Name: v.Name(), Title: v.Title(), Count: n})
	}

	s.Templates.Render(w, "index.html", &struct {
		PageData
		Views []viewSummary
	}{
		PageData: s.page("Administration"),
		Views:    summaries,
	})
}

// ListPage handles GET /admin/{view}/.
func (s *Server) ListPage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.byName[r.PathValue("view")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var (
		rows []Row
		err  error
	)
	if f, ok := v.(itemFilter); ok && r.URL.Query().Get("item_id") != "" {
		itemID, perr := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
		if perr != nil {
			http.Error(w, "invalid item_id", http.StatusBadRequest)
			return
		}
		rows, err = f.RowsForItem(r.Context(), itemID)
	} else {
		rows, err = v.Rows(r.Context())
	}
	if err != nil {
		zap.L().Error("failed to list rows", zap.String("view", v.Name()), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "list.html", &struct {
		PageData
		View    string
		Columns []string
		Rows    []Row
	}{
		PageData: s.page(v.Title()),
		View:     v.Name(),
		Columns:  v.Columns(),
		Rows:     rows,
	})
}

// newID in place of a record id addresses the create form.
const newID = "new"

type detailData struct {
	PageData
	View   string
	ID     string
	Fields []Cell
}

// DetailPage handles GET /admin/{view}/{id}.
func (s *Server) DetailPage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.byName[r.PathValue("view")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.PathValue("id") == newID {
		s.newPage(w, r, v)
		return
	}
	s.renderDetail(w, r, v, http.StatusOK, "")
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, v View, status int, message string) {
	id := r.PathValue("id")
	title, fields, err := v.Detail(r.Context(), id)
	if err != nil {
		if !viewError(w, err) {
			zap.L().Error("failed to load record", zap.String("view", v.Name()), zap.String("id", id), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	data := &detailData{PageData: s.page(title), View: v.Name(), ID: id, Fields: fields}
	data.Error = message
	s.Templates.RenderStatus(w, status, "detail.html", data)
}

// DeleteSubmit handles POST /admin/{view}/{id}/delete.
func (s *Server) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	v, ok := s.byName[r.PathValue("view")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	id := r.PathValue("id")
	err := v.Delete(r.Context(), id)
	switch {
	case err == nil:
		zap.L().Info("record deleted from admin", zap.String("view", v.Name()), zap.String("id", id))
		http.Redirect(w, r, "/admin/"+v.Name()+"/", http.StatusSeeOther)
	case errors.Is(err, store.ErrItemInUse):
		s.renderDetail(w, r, v, http.StatusConflict, err.Error())
	case viewError(w, err):
	default:
		zap.L().Error("failed to delete record", zap.String("view", v.Name()), zap.String("id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// viewError writes a response for the client-side failures a view can
// report and reports whether it did.
func viewError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, errInvalidID):
		http.Error(w, "invalid id", http.StatusBadRequest)
	case store.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		return false
	}
	return true
}

type formData struct {
	PageData
	View   string
	ID     string
	Fields []FormField
}

func (s *Server) renderForm(w http.ResponseWriter, status int, v View, id string, fields []FormField, message string) {
	title := "Add to " + strings.ToLower(v.Title())
	if id != newID {
		title = "Edit " + v.Name() + " #" + id
	}
	data := &formData{PageData: s.page(title), View: v.Name(), ID: id, Fields: fields}
	data.Error = message
	s.Templates.RenderStatus(w, status, "form.html", data)
}

// loadForm fetches the form of one record, or the create form for newID.
// It writes the error response itself and returns false on failure.
func loadForm(w http.ResponseWriter, r *http.Request, v View, id string) ([]FormField, bool) {
	formID := id
	if id == newID {
		formID = ""
	}
	fields, err := v.Form(r.Context(), formID)
	if err != nil {
		if !viewError(w, err) {
			zap.L().Error("failed to load form", zap.String("view", v.Name()), zap.String("id", id), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return fields, true
}

// newPage handles GET /admin/{view}/new.
func (s *Server) newPage(w http.ResponseWriter, r *http.Request, v View) {
	fields, ok := loadForm(w, r, v, newID)
	if !ok {
		return
	}
	s.renderForm(w, http.StatusOK, v, newID, fields, "")
}

// EditPage handles GET /admin/{view}/{id}/edit.
func (s *Server) EditPage(w http.ResponseWriter, r *http.Request) {
	v, ok := s.byName[r.PathValue("view")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	fields, ok := loadForm(w, r, v, id)
	if !ok {
		return
	}
	s.renderForm(w, http.StatusOK, v, id, fields, "")
}

// SaveSubmit handles POST /admin/{view}/{id}. The id "new" creates a record.
func (s *Server) SaveSubmit(w http.ResponseWriter, r *http.Request) {
	v, ok := s.byName[r.PathValue("view")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	fields, ok := loadForm(w, r, v, id)
	if !ok {
		return
	}

	var err error
	if id == newID {
		var created int64
		created, err = v.Create(r.Context(), r.PostForm)
		id = strconv.FormatInt(created, 10)
	} else {
		err = v.Update(r.Context(), id, r.PostForm)
	}
	if err == nil {
		zap.L().Info("record saved from admin", zap.String("view", v.Name()), zap.String("id", id))
		http.Redirect(w, r, "/admin/"+v.Name()+"/"+id, http.StatusSeeOther)
		return
	}

	status := formErrorStatus(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("failed to save record", zap.String("view", v.Name()), zap.String("id", r.PathValue("id")), zap.Error(err))
		http.Error(w, "internal error", status)
		return
	}
	s.renderForm(w, status, v, r.PathValue("id"), fillForm(fields, r.PostForm), err.Error())
}

func formErrorStatus(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid), errors.Is(err, store.ErrDuplicateBarcode), errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrItemInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fillForm copies submitted values back into the form so a rejected
// submission can be corrected.
func fillForm(fields []FormField, form url.Values) []FormField {
	for i := range fields {
		if !fields[i].ReadOnly && form.Has(fields[i].Name) {
			fields[i].Value = form.Get(fields[i].Name)
		}
	}
	return fields
}
