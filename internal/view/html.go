package view

import (
	"embed"
	"html/template"
	"io"
)

// Template names.
const (
	TemplateTeacherDashboard = "teacher_dashboard.html"
	TemplateClasses          = "classes.html"
	TemplateStudents         = "students.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Templates returns the page fragments, for gin's SetHTMLTemplate.
func Templates() *template.Template { return templates }

// Render writes the named fragment for data.
func Render(w io.Writer, name string, data any) error {
	return templates.ExecuteTemplate(w, name, data)
}
