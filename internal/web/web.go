// Package web serves the browser client: the login page, the character
// sheet page and their scripts and styles, all embedded in the binary.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"go.uber.org/zap"
)

//go:embed public
var assets embed.FS

const (
	indexPage = "index.html"
	sheetPage = "charactersheet.html"
)

// Handler serves the embedded client bundle.
type Handler struct {
	files  fs.FS
	static http.Handler
	log    *zap.Logger
}

func NewHandler(log *zap.Logger) (*Handler, error) {
	files, err := fs.Sub(assets, "public")
	if err != nil {
		return nil, fmt.Errorf("resolve web assets: %w", err)
	}
	return &Handler{
		files:  files,
		static: http.FileServer(http.FS(files)),
		log:    log,
	}, nil
}

// Index serves the login page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.page(w, indexPage)
}

// Sheet serves the character sheet editor.
func (h *Handler) Sheet(w http.ResponseWriter, r *http.Request) {
	h.page(w, sheetPage)
}

// Static serves scripts and stylesheets by path.
func (h *Handler) Static(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}

func (h *Handler) page(w http.ResponseWriter, name string) {
	body, err := fs.ReadFile(h.files, name)
	if err != nil {
		h.log.Error("embedded page missing", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}
