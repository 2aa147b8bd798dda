package email

import (
	"embed"
	"html/template"
)

// Template names an HTML template under templates/.
type Template string

const (
	// TemplateLikeNotification corresponds to templates/like.html.
	TemplateLikeNotification Template = "like"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func (t Template) file() string {
	return string(t) + ".html"
}
