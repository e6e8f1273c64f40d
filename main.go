package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"devfolio/api/cache"
	"devfolio/api/contact"
	"devfolio/api/database"
	"devfolio/api/geo"
	"devfolio/api/handlers"
	"devfolio/api/middleware"
	"devfolio/api/stats"
	"devfolio/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (dashboard operators + analytics sessions) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- ClickHouse (page views + events) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	// --- Redis stats cache (optional) ---
	var statsCache *cache.StatsCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		statsCache, err = cache.ConnectRedis(addr, os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer statsCache.Close()
	} else {
		log.Println("REDIS_ADDR not set; stats reports will not be cached")
	}

	// --- Geolocation (optional) ---
	var resolver geo.Resolver = geo.NoopResolver{}
	if dbPath := os.Getenv("GEOIP_DB_PATH"); dbPath != "" {
		resolver, err = geo.NewMaxMindResolver(dbPath)
		if err != nil {
			log.Fatalf("Failed to open GeoIP database: %v", err)
		}
		defer resolver.Close()
	} else {
		log.Println("GEOIP_DB_PATH not set; visitor locations will be unknown")
	}

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	sessionStore := store.NewSessionStore(dbClient.DB)
	trafficStore := store.NewTrafficStore(chClient)

	if err := bootstrapOperator(userStore); err != nil {
		log.Fatalf("Failed to bootstrap dashboard operator: %v", err)
	}

	// --- Aggregation ---
	var reportCache stats.ReportCache
	var cacheInvalidator handlers.CacheInvalidator
	if statsCache != nil {
		reportCache = statsCache
		cacheInvalidator = statsCache
	}
	aggregator := stats.NewAggregator(sessionStore, trafficStore, reportCache)

	// --- Contact form collaborators ---
	mailer, err := contact.NewSMTPMailerFromEnv()
	if err != nil {
		log.Fatalf("Failed to configure contact mailer: %v", err)
	}
	captcha := contact.NewRecaptchaVerifierFromEnv()

	// --- Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore)
	trackHandlers := handlers.NewTrackHandlers(sessionStore, trafficStore, resolver)
	statsHandlers := handlers.NewStatsHandlers(aggregator)
	adminHandlers := handlers.NewAdminHandlers(sessionStore, trafficStore, cacheInvalidator)
	geoHandlers := handlers.NewGeoHandlers(resolver)
	contactHandlers := handlers.NewContactHandlers(captcha, mailer)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Public tracking and site endpoints
		api.POST("/track/pageview", trackHandlers.RecordPageView)
		api.POST("/track/event", trackHandlers.RecordEvent)
		api.GET("/geolocation", geoHandlers.GetGeolocation)
		api.POST("/contact", contactHandlers.SubmitContact)

		// Dashboard authentication
		api.POST("/auth/login", authHandlers.Login)
		api.POST("/auth/logout", authHandlers.Logout)

		// Protected dashboard routes
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/stats", statsHandlers.GetStats)
			protected.POST("/admin/clear", adminHandlers.ClearAnalytics)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Analytics API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Analytics API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

// bootstrapOperator upserts the dashboard operator from the environment.
// There is no signup path; the operator is the only dashboard user.
func bootstrapOperator(userStore *store.UserStore) error {
	username := os.Getenv("DASHBOARD_USERNAME")
	password := os.Getenv("DASHBOARD_PASSWORD")
	if username == "" || password == "" {
		log.Println("DASHBOARD_USERNAME/DASHBOARD_PASSWORD not set; skipping operator bootstrap")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return userStore.EnsureOperator(ctx, username, hashed)
}
