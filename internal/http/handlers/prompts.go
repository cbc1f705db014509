package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// GeneratePrompt composes a final video prompt from the user's idea and a
// system instruction set. An optional reference image rides along as a
// multipart file part.
func (a *App) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	userPrompt := r.FormValue("user_prompt")
	systemInstructions := r.FormValue("system_instructions")
	if strings.TrimSpace(userPrompt) == "" || strings.TrimSpace(systemInstructions) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_prompt and system_instructions are required")
		return
	}
	imageData, imageMIME, _ := readFilePart(r, "image")

	final, err := a.Prompts.Generate(r.Context(), userPrompt, systemInstructions, imageData, imageMIME)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"final_prompt": final})
}

type refinePromptRequest struct {
	CurrentPrompt     string `json:"current_prompt"`
	RefineInstruction string `json:"refine_instruction"`
}

// RefinePrompt rewrites an existing prompt per a free-form instruction.
func (a *App) RefinePrompt(w http.ResponseWriter, r *http.Request) {
	var req refinePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.CurrentPrompt) == "" || strings.TrimSpace(req.RefineInstruction) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "current_prompt and refine_instruction are required")
		return
	}

	refined, err := a.Prompts.Refine(r.Context(), req.CurrentPrompt, req.RefineInstruction)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"refined_prompt": refined})
}
