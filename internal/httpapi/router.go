package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORSOptions is a narrow surface over go-chi/cors
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RouterOptions configures SetupRouter
type RouterOptions struct {
	// APIKey protects /imports; empty disables auth
	APIKey string
	CORS   CORSOptions
}

// SetupRouter sets up HTTP routes
func SetupRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(handler.log))
	r.Use(corsHandler(opts.CORS))

	// GET /version is public
	r.Get("/version", handler.GetVersion)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.APIKey))

		r.Post("/imports", handler.CreateImport)
		r.Get("/imports", handler.ListImports)
		r.Get("/imports/{jobId}", handler.GetImport)
	})

	return r
}

func corsHandler(o CORSOptions) func(http.Handler) http.Handler {
	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := o.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := o.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         o.MaxAge,
	})
}
