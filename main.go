package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MO-RISE/crowsnest/internal/admin"
	"github.com/MO-RISE/crowsnest/internal/config"
	"github.com/MO-RISE/crowsnest/internal/guard"
	"github.com/MO-RISE/crowsnest/internal/handlers"
	"github.com/MO-RISE/crowsnest/internal/identity"
	"github.com/MO-RISE/crowsnest/internal/metrics"
	"github.com/MO-RISE/crowsnest/internal/middleware"
	"github.com/MO-RISE/crowsnest/internal/proxy"
	"github.com/MO-RISE/crowsnest/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Session gateway for the crowsnest vessel-monitoring platform")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the gateway")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	r, err := newRouter(cfg, recorder)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	log.Printf("crowsnest gateway starting on %s", cfg.ServerAddr)
	log.Printf("Auth service: %s", cfg.AuthAPIURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	<-m.Done()
}

// newRouter assembles the gateway: guard, login surface, admin gate and
// the guarded upstream proxies.
func newRouter(cfg *config.Config, recorder metrics.Recorder) (*gin.Engine, error) {
	// The identity client talks to the auth service for every guarded
	// navigation, login and logout.
	authClient := identity.NewClient(cfg).WithRecorder(recorder)

	routeGuard := guard.New(authClient, cfg.SessionCookieName, cfg.LoginPath, recorder)
	adminGate := admin.NewGate(authClient, cfg.AdminLoginPath, recorder)
	loginHandler := handlers.NewLoginHandler(authClient, cfg.BaseURL, cfg.SessionCookieName, recorder)

	monitorUpstream, err := proxy.New(cfg.MonitorUpstream)
	if err != nil {
		return nil, fmt.Errorf("invalid monitor upstream: %w", err)
	}
	adminUpstream, err := proxy.New(cfg.AdminUpstream)
	if err != nil {
		return nil, fmt.Errorf("invalid admin upstream: %w", err)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// Metrics middleware first so it sees every route
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID())

	// The gateway's own cookie carries login flash messages only; the
	// auth service's session cookie is never touched here.
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("crowsnest_gateway", sessionStore))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET("/metrics", middleware.MetricsAuth(cfg.MetricsToken), gin.WrapH(promhttp.Handler()))
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Login rate limiting protects the credential exchange
	var loginLimiter gin.HandlerFunc
	if cfg.LoginRateLimitEnabled {
		loginLimiter, err = middleware.NewLoginRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.LoginRequestsPerMin,
			CleanupInterval:   5 * time.Minute,
			StoreType:         cfg.RateLimitStore,
			RedisAddr:         cfg.RedisAddr,
			RedisPassword:     cfg.RedisPassword,
			RedisDB:           cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing login rate limiter: %w", err)
		}
		log.Printf("Login rate limiting enabled (%d req/min, %s store)",
			cfg.LoginRequestsPerMin, cfg.RateLimitStore)
	} else {
		loginLimiter = func(c *gin.Context) { c.Next() }
	}

	// Login, logout
	r.GET(cfg.LoginPath, loginHandler.ShowLogin("Sign in"))
	r.POST(cfg.LoginPath, loginLimiter, loginHandler.Login)
	r.POST("/logout", loginHandler.Logout(cfg.LoginPath))

	// Admin console: its own login destination plus gated console routes
	r.GET(cfg.AdminLoginPath, loginHandler.ShowLogin("User Administration"))
	r.POST(cfg.AdminLoginPath, loginLimiter, loginHandler.Login)
	r.POST("/admin/logout", loginHandler.Logout(cfg.AdminLoginPath))

	adminRoutes := r.Group("/admin", adminGate.Middleware())
	adminRoutes.GET("/api/identity", adminGate.IdentityHandler)
	adminRoutes.GET("/api/permissions", adminGate.PermissionsHandler)
	adminRoutes.Any("/console/*path", adminUpstream.StripPrefix("/admin/console"))

	// Guarded platform routes; anything not routed above is the map
	// viewer's to serve, behind the same guard.
	r.GET("/", routeGuard.Middleware(), monitorUpstream.Handler())
	r.GET("/ecdis", routeGuard.Middleware(), monitorUpstream.Handler())
	r.NoRoute(routeGuard.Middleware(), monitorUpstream.Handler())

	return r, nil
}
