package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/urbanbyte/chamados/internal/asset"
	"github.com/urbanbyte/chamados/internal/config"
	httpmiddleware "github.com/urbanbyte/chamados/internal/http/middleware"
	"github.com/urbanbyte/chamados/internal/identity"
	"github.com/urbanbyte/chamados/internal/metrics"
	"github.com/urbanbyte/chamados/internal/repo"
	"github.com/urbanbyte/chamados/internal/service"
	"github.com/urbanbyte/chamados/internal/tenant"
	"github.com/urbanbyte/chamados/internal/ticket"
)

// Handler agrega os serviços expostos pela API.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	queries       *repo.Queries
	authService   *service.AuthService
	userService   *service.UserService
	tenants       *tenant.Service
	tickets       *ticket.Service
	assets        *asset.Service
	metrics       *metrics.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado com todos os domínios montados.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	queries := repo.New(pool)

	tenantRepo := tenant.NewRepository(pool)
	tenantService := tenant.NewService(tenantRepo)

	assetRepo := asset.NewRepository(pool)
	assetService := asset.NewService(assetRepo, queries, cfg.PublicBaseURL)

	ticketRepo := ticket.NewRepository(pool)
	ticketLogger := log.With().Str("component", "tickets").Logger()
	ticketService := ticket.NewService(ticketRepo, assetService, queries, ticketLogger)

	metricsService := metrics.NewService(ticketRepo)

	userService := service.NewUserService(queries, cfg.InviteTTL)
	resolver := identity.NewResolver(queries)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		queries:       queries,
		authService:   authService,
		userService:   userService,
		tenants:       tenantService,
		tickets:       ticketService,
		assets:        assetService,
		metrics:       metricsService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Get("/tenant", h.TenantConfig)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
			auth.Post("/invite/accept", h.AcceptInvite)
		})

		public.Route("/public/tickets", func(pt chi.Router) {
			pt.Post("/", h.PublicCreateTicket)
			pt.With(httpmiddleware.TenantHost(tenantService)).Get("/{readableID}", h.PublicTrackTicket)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))
		private.Use(httpmiddleware.Principal(resolver))

		private.Get("/me", h.Me)

		private.Route("/tickets", func(t chi.Router) {
			t.Post("/", h.CreateTicket)
			t.Get("/", h.ListTickets)
			t.Get("/{id}", h.GetTicket)
			t.Patch("/{id}/status", h.ChangeTicketStatus)
		})

		private.Route("/assets", func(a chi.Router) {
			a.Post("/", h.CreateAsset)
			a.Get("/", h.ListAssets)
			a.Get("/{id}/label", h.AssetLabel)
		})

		private.Get("/sectors", h.ListSectors)
		private.Post("/sectors", h.CreateSector)
		private.Get("/locations", h.ListLocations)
		private.Post("/locations", h.CreateLocation)

		private.Route("/users", func(u chi.Router) {
			u.Get("/", h.ListUsers)
			u.Post("/invite", h.InviteUser)
			u.Patch("/{id}", h.UpdateUserAccess)
		})

		private.Get("/dashboard/metrics", h.DashboardMetrics)

		private.Route("/admin/tenants", func(a chi.Router) {
			a.Get("/", h.ListTenants)
			a.Post("/", h.CreateTenant)
			a.Get("/{id}", h.GetTenant)
		})
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
