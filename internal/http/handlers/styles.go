package handlers

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"funmoji/internal/generator"
)

type styleResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var titleCaser = cases.Title(language.English)

// Styles returns the photo style catalog and the text prompt ideas so a
// client can render its pickers without hardcoding them.
func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	toResponse := func(in []generator.StylePrompt) []styleResponse {
		out := make([]styleResponse, 0, len(in))
		for _, s := range in {
			out = append(out, styleResponse{ID: s.ID, Label: titleCaser.String(s.Label)})
		}
		return out
	}
	a.json(w, http.StatusOK, map[string]any{
		"photo_styles": toResponse(generator.PhotoStyles),
		"text_ideas":   toResponse(generator.TextIdeas),
	})
}
