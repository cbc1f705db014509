package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options tunes router construction.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	// StaticDir, when set, serves generated artifacts under /static.
	StaticDir string
}

// NewRouter assembles the HTTP surface.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}

		r.Route("/videos", func(r chi.Router) {
			r.Post("/generate", app.VideosGenerate)
			r.Post("/generate-from-image", app.VideosGenerateFromImage)
			r.Post("/edit", app.VideosEdit)
			r.Post("/edit-advanced", app.VideosEditAdvanced)
		})

		r.Route("/images", func(r chi.Router) {
			r.Post("/generate", app.ImagesGenerate)
			r.Post("/edit", app.ImagesEdit)
			r.Post("/segment", app.ImagesSegment)
		})

		r.Post("/generate-prompt", app.GeneratePrompt)
		r.Post("/refine-prompt", app.RefinePrompt)
		r.Post("/vto", app.VirtualTryOn)
		r.Post("/product-recontext", app.ProductRecontext)

		r.Get("/operations/{operation_id}", app.OperationStatus)
		r.Get("/history", app.History)
		r.Get("/usage-report", app.UsageReport)

		r.Route("/instructions", func(r chi.Router) {
			r.Get("/", app.InstructionsList)
			r.Post("/", app.InstructionsSave)
			r.Delete("/{id}", app.InstructionsDelete)
		})

		r.Get("/settings", app.SettingsGet)
		r.Put("/settings", app.SettingsSave)
	})

	if opts.StaticDir != "" {
		fileServer := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	return r
}
