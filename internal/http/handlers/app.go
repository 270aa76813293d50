// Package handlers exposes the sticker pipeline over a thin JSON surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"funmoji/internal/domain"
	"funmoji/internal/generator"
	"funmoji/internal/infra"
)

type App struct {
	Orchestrator *generator.Orchestrator
	Recents      domain.RecentStickerRepository
	Logger       *infra.Logger
}

func NewApp(orch *generator.Orchestrator, recents domain.RecentStickerRepository, logger *infra.Logger) *App {
	return &App{Orchestrator: orch, Recents: recents, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
