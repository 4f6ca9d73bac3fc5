package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twin-backend/cmd"
	"twin-backend/internal/api"
	"twin-backend/internal/database"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	DatabaseURL string `env:"DATABASE_URL,notEmpty,required"`
	APIPort     string `env:"API_PORT" envDefault:"8001"`

	// LLMBaseURL switches to the OpenAI-compatible client when set; the
	// hosted OpenAI endpoint is used otherwise, routed through
	// OpenAIBaseURL when a proxy is configured.
	LLMBaseURL    string `env:"LLM_BASE_URL" envDefault:""`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:""`

	OpenAIAPIKey string  `env:"OPENAI_API_KEY" envDefault:""`
	Model        string  `env:"MODEL" envDefault:"gpt-4o-mini"`
	Temperature  float64 `env:"TEMPERATURE" envDefault:"0"`
	MaxTokens    int64   `env:"MAX_TOKENS" envDefault:"256"`

	DefaultPersonaName string `env:"DEFAULT_PERSONA_NAME" envDefault:"Digital Twin"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cmd.SeedDefaultPersona(db, cfg.DefaultPersonaName)

	provider := cmd.NewProvider(cfg.LLMBaseURL, cfg.OpenAIBaseURL)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// Middleware. No blanket timeout: the streaming endpoint holds its
	// connection open for as long as the provider produces tokens.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Log requests
	r.Use(middleware.Recoverer) // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := api.NewChatService(db, provider, api.Defaults{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		APIKey:      cfg.OpenAIAPIKey,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", api.RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
		chatHandler.AddRoutes(r)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
