package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"shipment-enricher/internal/common/logging"
	"shipment-enricher/internal/common/ratelimit"
	"shipment-enricher/internal/config"
	"shipment-enricher/internal/handlers"
	"shipment-enricher/internal/jasper"
	"shipment-enricher/internal/middleware"
	"shipment-enricher/internal/pipeline"
	"shipment-enricher/internal/redis"
	"shipment-enricher/internal/registry"
	"shipment-enricher/internal/shipbob"
	"shipment-enricher/internal/shopify"
	"shipment-enricher/internal/storage"
	"shipment-enricher/internal/token"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	// Credential store
	var credStore token.Store
	if strings.EqualFold(cfg.TokenStorage, "sqlite") {
		settings, err := storage.NewSettingsStore(cfg.SettingsDBPath)
		if err != nil {
			log.Fatalf("Failed to open settings database: %v", err)
		}
		defer settings.Close()
		credStore = token.NewDBStore(settings)
	} else {
		credStore = token.NewFileStore(cfg.TokenFile)
	}

	tokens := token.NewManager(token.Config{
		ClientID:     cfg.ShipBobClientID,
		ClientSecret: cfg.ShipBobClientSecret,
		AuthURL:      cfg.ShipBobAuthURL,
		TokenURL:     cfg.ShipBobTokenURL,
		RedirectURI:  cfg.ShipBobRedirectURI,
	}, credStore, logger)

	// Device registration database is optional; without it every lookup is
	// a miss and orders still get their imei attribute
	var devices pipeline.DeviceLookup = registry.Disabled{}
	if cfg.RegistrationDBURL != "" {
		pool, err := registry.Connect(context.Background(), cfg.RegistrationDBURL)
		if err != nil {
			log.Fatalf("Failed to connect to registration database: %v", err)
		}
		defer pool.Close()
		devices = registry.NewClient(pool, logger)
	} else {
		logger.Warn("REGISTRATION_DB_URL not set, device lookups disabled")
	}

	// Carrier API rate limiter, shared across deliveries
	limiterConfig := ratelimit.Config{
		MaxRequests: cfg.JasperRateLimit,
		Window:      cfg.JasperRateWindow,
		Enabled:     true,
		Type:        ratelimit.BackendType(strings.ToLower(cfg.RateLimitBackend)),
		KeyPrefix:   "ratelimit:jasper:",
	}
	var limiter ratelimit.Limiter
	var err error
	if limiterConfig.Type == ratelimit.BackendRedis {
		redisClient, redisErr := redis.NewClient(&redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDBNumber(),
		})
		if redisErr != nil {
			log.Fatalf("Failed to connect to Redis: %v", redisErr)
		}
		defer redisClient.Close()
		limiter, err = ratelimit.New(limiterConfig, redisClient)
	} else {
		limiter, err = ratelimit.New(limiterConfig)
	}
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}

	carrier := jasper.NewClient(jasper.Config{
		BaseURL:  cfg.JasperAPIURL,
		Username: cfg.JasperUsername,
		APIKey:   cfg.JasperAPIKey,
	}, limiter, logger)

	writer := shopify.NewClient(shopify.Config{
		Store:       cfg.ShopifyStore,
		AccessToken: cfg.ShopifyToken,
		APIVersion:  cfg.ShopifyAPIVersion,
	}, logger)

	enricher := pipeline.New(devices, carrier, writer, logger)
	webhooks := shipbob.NewWebhookClient("", tokens, logger)

	h := handlers.New(enricher, tokens, webhooks, cfg, logger)

	// Set up routes
	router := mux.NewRouter()
	router.Use(middleware.Logging)

	router.HandleFunc("/webhooks/shipbob/order-shipped", h.HandleOrderShipped).Methods("POST")

	router.HandleFunc("/auth/shipbob", h.ShipBobAuth).Methods("GET")
	router.HandleFunc("/oauth/callback", h.OAuthCallback).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/webhooks/register", h.RegisterWebhook).Methods("POST")
	api.HandleFunc("/logs", h.GetLogs).Methods("GET")

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/", h.Root).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", logging.Field{Key: "port", Value: cfg.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
