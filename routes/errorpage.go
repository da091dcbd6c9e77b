package routes

import (
	"html/template"
	"net/http"

	"pagemill/model"
)

var errorPageTmpl = template.Must(template.New("errorpage").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Failed to render {{.URLPath}}</title>
<style>
body { font-family: monospace; background: #fdf2f2; color: #2d2d2d; margin: 2rem; }
h1 { color: #c0341d; }
.file { color: #555; margin-bottom: 1rem; }
pre { background: #1d1f21; color: #c5c8c6; padding: 1rem; overflow-x: auto; }
.message { font-weight: bold; }
</style>
</head>
<body>
<h1>Failed to render {{.URLPath}}</h1>
<div class="file">{{.Diag.Filename}}</div>
<p class="message">{{.Diag.Type}}: {{.Diag.Message}}</p>
<pre>{{.Diag.CodeFrame}}</pre>
</body>
</html>
`))

type errorPageData struct {
	URLPath string
	Diag    model.Diagnostic
}

// writeErrorPage renders the diagnostic as an HTML 500 page. Template
// failures fall back to a plain-text body; the request loop never crashes
// on the error path.
func writeErrorPage(w http.ResponseWriter, urlPath string, diag model.Diagnostic) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := errorPageTmpl.Execute(w, errorPageData{URLPath: urlPath, Diag: diag}); err != nil {
		w.Write([]byte(diag.Message))
	}
}
