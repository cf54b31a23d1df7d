package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/davgate"
)

// WebDAV verbs outside net/http's set.
const (
	MethodPropfind = "PROPFIND"
	MethodMkcol    = "MKCOL"
	MethodCopy     = "COPY"
	MethodMove     = "MOVE"
)

func init() {
	for _, m := range []string{MethodPropfind, MethodMkcol, MethodCopy, MethodMove} {
		chi.RegisterMethod(m)
	}
}

type route struct {
	method string
	handle func(*Handler, http.ResponseWriter, *http.Request)
}

// routes is the fixed set of implemented verbs. OPTIONS is answered by the
// method filter and never reaches a handler.
var routes = []route{
	{http.MethodOptions, nil},
	{http.MethodGet, (*Handler).handleGet},
	{http.MethodHead, (*Handler).handleGet},
	{http.MethodPut, (*Handler).handlePut},
	{http.MethodDelete, (*Handler).handleDelete},
	{http.MethodPost, (*Handler).handlePost},
	{MethodMkcol, (*Handler).handleMkcol},
	{MethodCopy, (*Handler).handleCopy},
	{MethodMove, (*Handler).handleMove},
	{MethodPropfind, (*Handler).handlePropfind},
}

var allowHeader = func() string {
	methods := make([]string, len(routes))
	for i, rt := range routes {
		methods[i] = rt.method
	}
	return strings.Join(methods, ", ")
}()

// AllowedMethods returns the value of the Allow header.
func AllowedMethods() string {
	return allowHeader
}

func isImplemented(method string) bool {
	for _, rt := range routes {
		if rt.method == method {
			return true
		}
	}
	return false
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// MaxUploadSize caps PUT and POST bodies in bytes. Zero means no limit.
	MaxUploadSize int64
	// RateLimit is requests per minute per client identity. Zero disables it.
	RateLimit int
	Identity  davgate.IdentityPolicy
	CORS      CORSConfig
	Logger    *slog.Logger
}

// Handler serves WebDAV over a set of buckets.
type Handler struct {
	config   HandlerConfig
	auth     Authenticator
	resolver *Resolver
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the given configuration, authenticator and resolver.
func NewHandler(config *HandlerConfig, auth Authenticator, resolver *Resolver) (*Handler, error) {
	if auth == nil {
		return nil, fmt.Errorf("new handler: %w: authenticator cannot be nil", davgate.ErrInvalidInput)
	}
	if resolver == nil {
		return nil, fmt.Errorf("new handler: %w: resolver cannot be nil", davgate.ErrInvalidInput)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		config:   *config,
		auth:     auth,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// Router returns the http.Handler serving every bucket.
//
// Requests flow through the method filter (OPTIONS and unknown verbs), then
// the optional rate limit, then auth, then path resolution, then the verb
// handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.logger, h.config.Identity))
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(methodFilter)

	if h.config.RateLimit > 0 {
		r.Use(RateLimit(h.config.RateLimit, h.config.Identity))
	}

	r.Use(AuthMiddleware(h.auth, h.config.Identity))
	r.Use(ResolveMiddleware(h.resolver))

	for _, rt := range routes {
		if rt.handle == nil {
			continue
		}
		handle := rt.handle
		r.MethodFunc(rt.method, "/*", func(w http.ResponseWriter, req *http.Request) {
			handle(h, w, req)
		})
	}

	r.MethodNotAllowed(writeMethodNotAllowed)

	return r
}

// methodFilter answers OPTIONS and unimplemented verbs before auth runs.
func methodFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodOptions:
			w.Header().Set("Allow", allowHeader)
			w.Header().Set("DAV", "1")
			w.Header().Set("MS-Author-Via", "DAV")
			w.WriteHeader(http.StatusOK)
		case !isImplemented(r.Method):
			writeMethodNotAllowed(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func writeMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", allowHeader)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// target returns the resolved Target or answers 404 when none is set.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (Target, bool) {
	t, ok := TargetFromContext(r.Context())
	if !ok {
		HandleError(w, davgate.ErrBucketUnresolved)
	}
	return t, ok
}

// limitBody applies the configured upload cap.
func (h *Handler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}
}
