package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SettingsGet returns the current provider settings with the access token
// masked.
func (a *App) SettingsGet(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	current := a.settings
	a.mu.Unlock()

	current.AccessToken = maskToken(current.AccessToken)
	a.json(w, http.StatusOK, current)
}

// SettingsSave validates the submitted settings, constructs a fresh client
// from them, and swaps it in. In-flight jobs keep the snapshot they started
// with.
func (a *App) SettingsSave(w http.ResponseWriter, r *http.Request) {
	var req ProviderSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id is required")
		return
	}
	client, err := a.BuildClient(req)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid settings: "+err.Error())
		return
	}

	a.Clients.Store(client)
	a.mu.Lock()
	a.settings = req
	a.mu.Unlock()

	a.Logger.Info().Str("project_id", req.ProjectID).Msg("settings: provider client swapped")
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
