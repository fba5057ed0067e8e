package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"hdi1d/internal/registry"
	"hdi1d/pkg/types"
)

//go:embed ui/index.html
var uiFS embed.FS

var indexTmpl = template.Must(template.ParseFS(uiFS, "ui/index.html"))

type indexData struct {
	Options types.OptionsResponse
	Status  types.StatusResponse
	Custom  string
	MinDim  int
	MaxDim  int
}

func indexHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := indexData{
			Options: svc.Options(),
			Status:  svc.Status(),
			Custom:  registry.CustomResolution,
			MinDim:  registry.MinDimension,
			MaxDim:  registry.MaxDimension,
		}
		var buf bytes.Buffer
		if err := indexTmpl.Execute(&buf, data); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to render page")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}
