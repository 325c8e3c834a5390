package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"almoxarifado/internal/api/item"
	"almoxarifado/internal/api/supplier"
	"almoxarifado/internal/pkg/cache"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/pkg/metrics"
	"almoxarifado/internal/pkg/middleware"
	"almoxarifado/internal/pkg/response"
)

// Options reúne as dependências transversais do roteador.
// TokenService nil desliga a autenticação; RateLimitClient nil desliga o rate limiting.
// Sem TrustProxy o IP do cliente é sempre o RemoteAddr da conexão.
type Options struct {
	Logger          logger.Logger
	Metrics         *metrics.HTTPMetrics
	TokenService    middleware.TokenService
	RateLimitClient cache.Client
	RateLimit       int
	RatePeriod      time.Duration
	TrustProxy      bool
	Production      bool
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(supplierHandler *supplier.Handler, itemHandler *item.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !opts.Production,
	})

	// --- 1. Middlewares globais ---
	r.Use(chimw.StripSlashes)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(secureMiddleware.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, opts.Logger, http.StatusNotFound, map[string]interface{}{
			"code": http.StatusNotFound, "category": "NOT_FOUND", "message": "Rota não encontrada.",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, opts.Logger, http.StatusMethodNotAllowed, map[string]interface{}{
			"code": http.StatusMethodNotAllowed, "category": "METHOD_NOT_ALLOWED", "message": "Método não permitido.",
		})
	})

	// --- 2. Health check e métricas (fora de auth e rate limit) ---
	r.Get("/ping", PingHandler)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	// --- 3. API v1 ---
	r.Route("/v1", func(v1 chi.Router) {
		if opts.RateLimitClient != nil {
			v1.Use(middleware.RateLimiter(opts.RateLimitClient, opts.RateLimit, opts.RatePeriod, opts.Logger))
		}
		if opts.TokenService != nil {
			v1.Use(middleware.NewAuthMiddleware(opts.TokenService, opts.Logger))
		}

		supplierRoutes := func(sr chi.Router) {
			sr.Get("/", supplierHandler.ListSuppliersHandler)
			sr.Post("/", supplierHandler.CreateSupplierHandler)
			sr.Get("/{id}", supplierHandler.GetSupplierByIDHandler)
			sr.Put("/{id}", supplierHandler.UpdateSupplierHandler)
			sr.Patch("/{id}", supplierHandler.UpdateSupplierHandler)
			sr.Delete("/{id}", supplierHandler.DeleteSupplierHandler)
		}
		itemRoutes := func(ir chi.Router) {
			ir.Get("/", itemHandler.ListItemsHandler)
			ir.Post("/", itemHandler.CreateItemHandler)
			ir.Get("/{id}", itemHandler.GetItemByIDHandler)
			ir.Put("/{id}", itemHandler.UpdateItemHandler)
			ir.Patch("/{id}", itemHandler.UpdateItemHandler)
			ir.Delete("/{id}", itemHandler.DeleteItemHandler)
		}

		v1.Route("/suppliers", supplierRoutes)
		v1.Route("/fornecedores", supplierRoutes)
		v1.Route("/items", itemRoutes)
		v1.Route("/itens", itemRoutes)
	})

	return r
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
