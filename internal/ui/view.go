package ui

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// View is everything the page shows, derived from controller state.
type View struct {
	SignedIn      bool
	User          domain.User
	Bookmarks     []domain.Bookmark
	Draft         domain.Draft
	Notice        string
	ProviderLabel string
}

// Render writes the full page.
func Render(w io.Writer, v View) error {
	return templates.ExecuteTemplate(w, "page", v)
}

// RenderList writes the bookmark list items only.
func RenderList(w io.Writer, v View) error {
	return templates.ExecuteTemplate(w, "list", v)
}

// ListHTML renders the list items to a string for live updates.
func ListHTML(v View) (string, error) {
	var sb strings.Builder
	if err := RenderList(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}
