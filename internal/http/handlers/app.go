package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/prompts"
)

// ProviderSettings is the runtime-adjustable external client configuration.
// Saving settings constructs a fresh client and swaps it behind the shared
// ClientRef; jobs already in flight keep the client captured at their own
// dispatch time.
type ProviderSettings struct {
	ProjectID   string `json:"project_id"`
	Location    string `json:"location"`
	BaseURL     string `json:"base_url,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	VideoModel  string `json:"video_model,omitempty"`
	ImageModel  string `json:"image_model,omitempty"`
	TextModel   string `json:"text_model,omitempty"`
}

// ClientFactory builds an operation client from saved settings.
type ClientFactory func(ProviderSettings) (jobs.Client, error)

// App bundles handler dependencies.
type App struct {
	Dispatcher   *jobs.Dispatcher
	Status       *jobs.StatusService
	Instructions domain.InstructionRepository
	Prompts      *prompts.Service
	Clients      *jobs.ClientRef
	BuildClient  ClientFactory
	Logger       zerolog.Logger

	mu       sync.Mutex
	settings ProviderSettings
}

// NewApp wires the handler container.
func NewApp(dispatcher *jobs.Dispatcher, status *jobs.StatusService, instructions domain.InstructionRepository, promptSvc *prompts.Service, clients *jobs.ClientRef, factory ClientFactory, initial ProviderSettings, logger zerolog.Logger) *App {
	return &App{
		Dispatcher:   dispatcher,
		Status:       status,
		Instructions: instructions,
		Prompts:      promptSvc,
		Clients:      clients,
		BuildClient:  factory,
		Logger:       logger,
		settings:     initial,
	}
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

// domainError maps repository and dispatch errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, domain.ErrInvalidPrompt), errors.Is(err, domain.ErrInvalidParams):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrDuplicateJob):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_failure", err.Error())
	case errors.Is(err, jobs.ErrShuttingDown):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "server is shutting down")
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
