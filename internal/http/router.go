package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/techdiscoveria/discoveria/internal/auth"
	"github.com/techdiscoveria/discoveria/internal/authz"
	"github.com/techdiscoveria/discoveria/internal/cache"
	"github.com/techdiscoveria/discoveria/internal/config"
	"github.com/techdiscoveria/discoveria/internal/http/handlers"
	"github.com/techdiscoveria/discoveria/internal/http/middlewares"
	"github.com/techdiscoveria/discoveria/internal/notifications"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/payments"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router needs, built once in main.
type Deps struct {
	Config    config.Config
	Store     *repo.Store
	JWT       *auth.Manager
	Processor payments.Processor
	Notifier  notifications.Notifier
	Limiter   middlewares.Limiter

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(otelgin.Middleware("discoveria-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.RequestTimeout(d.Config.StoreTimeout))

	limiter := d.Limiter
	if limiter == nil {
		limiter = middlewares.NewRateLimiter(d.Config.RateLimitPerMinute, time.Minute)
	}
	limited := func(scope string) gin.HandlerFunc {
		return middlewares.RateLimit(limiter, scope, middlewares.KeyByIP)
	}

	processor := d.Processor
	if processor == nil {
		processor = payments.DisabledProcessor{}
	}

	// guards
	authMW := middlewares.NewAuthMiddleware(d.JWT)
	requireAuth := authMW.RequireAuth()
	requireAdmin := middlewares.NewRoleGuard(d.Store.Users).RequireAdmin()
	enforcing := d.Config.EnforceOwnership
	policy := authz.NewPolicy(d.Store.Users, enforcing)

	// handlers
	health := handlers.NewHealthHandler(d.Store)
	tokens := handlers.NewTokenHandler(d.JWT)
	users := handlers.NewUsersHandler(d.Store.Users, policy)
	products := handlers.NewProductsHandler(d.Store.Products, policy, cache.New(d.Config.PublicCacheTTL))
	pay := handlers.NewPaymentsHandler(d.Store.Payments, processor, d.Notifier, d.Prom)

	// operational
	r.GET("/", health.Root)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// credential issuer
	r.POST("/jwt", limited("jwt"), tokens.Issue)

	// users
	r.GET("/users", requireAuth, requireAdmin, users.List)
	r.POST("/users", limited("register"), users.Register)
	r.GET("/users/role/:email", requireAuth, users.GetRole)
	r.GET("/users/:email", requireAuth, users.GetByEmail)

	// PATCH /users/:id {role} is admin only; PATCH /users/:email {Membership} is owner-or-admin,
	// and open in compat mode
	isRoleChange := func(c *gin.Context) bool { return !handlers.IsEmailKey(c) }
	membershipGuarded := func(c *gin.Context) bool { return enforcing || isRoleChange(c) }
	r.PATCH("/users/:key",
		middlewares.When(membershipGuarded, requireAuth),
		middlewares.When(isRoleChange, requireAdmin),
		users.Patch,
	)

	// products: owner dashboard
	r.POST("/userProducts", requireAuth, products.Create)
	r.GET("/userProducts", products.List)
	r.GET("/userProducts/:email", requireAuth, products.ListByOwner)
	r.PUT("/userProducts/:id", requireAuth, products.Upsert)
	r.DELETE("/userProducts/:id", requireAuth, products.Delete)

	// products: public browse
	r.GET("/page/products", products.Page)
	r.GET("/productsCount", products.Count)
	r.GET("/products", products.Browse)
	r.GET("/products/:id", requireAuth, products.Get)
	r.PATCH("/products/:id", requireAuth, products.Patch)

	// payments
	r.POST("/create_payment_intent", limited("payment_intent"), pay.CreateIntent)
	r.POST("/payments", requireAuth, pay.Record)
	r.GET("/payments", requireAuth, pay.List)

	return r
}
