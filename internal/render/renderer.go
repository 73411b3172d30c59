// Package render turns the embedded HTML templates into responses.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"slices"

	"github.com/oxtoacart/bpool"
	"github.com/rs/zerolog/log"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const BufferPoolSize = 64

var (
	templates map[string]*template.Template

	bufpool *bpool.BufferPool
)

func Init() {
	bufpool = bpool.NewBufferPool(BufferPoolSize)

	loaded, err := loadTemplates(templateFS)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load HTML templates")
	}
	templates = loaded

	log.Debug().Int("num_templates", len(templates)).Msg("templates loaded")
}

// loadTemplates parses every page under templates/ together with the shared bases and includes. Includes are also
// available on their own for partial renders.
func loadTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	shared := map[string][]string{}
	for _, dir := range []string{"bases", "includes"} {
		matches, err := fs.Glob(fsys, "templates/"+dir+"/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("render: loadTemplates: %s: %w", dir, err)
		}
		shared[dir] = matches
	}

	pages, err := fs.Glob(fsys, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("render: loadTemplates: pages: %w", err)
	}

	loaded := make(map[string]*template.Template, len(pages)+len(shared["includes"]))

	for _, inc := range shared["includes"] {
		t, err := template.ParseFS(fsys, inc)
		if err != nil {
			return nil, fmt.Errorf("render: loadTemplates: %s: %w", inc, err)
		}
		loaded[path.Base(inc)] = t
	}

	for _, page := range pages {
		files := slices.Concat(shared["bases"], shared["includes"], []string{page})
		t, err := template.ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("render: loadTemplates: %s: %w", page, err)
		}
		loaded[path.Base(page)] = t
	}

	return loaded, nil
}

type fullPageErrorParams struct {
	ErrorTitle  string
	ErrorHeader string
	Error       string
}

// RenderFullPageError renders a standalone error page with the given status.
func RenderFullPageError(w http.ResponseWriter, statusCode int, title, header, message string) {
	RenderStatus(w, statusCode, "full_page_error.gohtml", &fullPageErrorParams{
		ErrorTitle:  title,
		ErrorHeader: header,
		Error:       message,
	})
}

func Render(w http.ResponseWriter, name string, data any) {
	RenderStatus(w, 0, name, data)
}

// RenderStatus renders the named template with statusCode. Zero leaves the status to the first write, which is 200.
func RenderStatus(w http.ResponseWriter, statusCode int, name string, data any) {
	templ := templates[name]
	if templ == nil {
		log.Error().Str("name", name).Msg("could not find template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)

	err := templ.Execute(buf, data)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("could not render response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if statusCode != 0 {
		w.WriteHeader(statusCode)
	}
	_, err = buf.WriteTo(w)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("error writing response to buffer")
	}
}

// RenderJSON writes v as the JSON body with the given status.
func RenderJSON(w http.ResponseWriter, statusCode int, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Caller(1).Msg("could not marshal JSON response")
		statusCode = http.StatusInternalServerError
		bytes = []byte(`{"error":"internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err = w.Write(bytes)
	if err != nil {
		log.Error().Err(err).Caller(1).Msg("could not write JSON response")
	}
}

func StaticFSHandler() http.Handler {
	return http.FileServer(http.FS(staticFS))
}
