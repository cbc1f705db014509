package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type instructionRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// InstructionsList returns all saved instruction templates.
func (a *App) InstructionsList(w http.ResponseWriter, r *http.Request) {
	templates, err := a.Instructions.List(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]string, 0, len(templates))
	for _, tpl := range templates {
		views = append(views, map[string]string{
			"id":      tpl.ID,
			"name":    tpl.Name,
			"content": tpl.Content,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"instructions": views})
}

// InstructionsSave creates a template or replaces the content of an existing
// name.
func (a *App) InstructionsSave(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Content) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name and content are required")
		return
	}
	saved, err := a.Instructions.Upsert(r.Context(), &domain.InstructionTemplate{
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"id":      saved.ID,
		"name":    saved.Name,
		"content": saved.Content,
	})
}

// InstructionsDelete removes a template by id.
func (a *App) InstructionsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	if err := a.Instructions.Delete(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
