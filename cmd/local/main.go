package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"twin-backend/cmd"
	"twin-backend/internal/api"
	"twin-backend/internal/database"
	"twin-backend/internal/llm"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Single-binary mode: sqlite on disk, no external database.

type Config struct {
	Root string `env:"ROOT" envDefault:"./twin-backend"`
	Port int    `env:"PORT" envDefault:"3001"`

	LLMBaseURL    string `env:"LLM_BASE_URL" envDefault:""`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:""`

	OpenAIAPIKey string  `env:"OPENAI_API_KEY" envDefault:""`
	Model        string  `env:"MODEL" envDefault:"gpt-4o-mini"`
	Temperature  float64 `env:"TEMPERATURE" envDefault:"0"`
	MaxTokens    int64   `env:"MAX_TOKENS" envDefault:"256"`

	DefaultPersonaName string `env:"DEFAULT_PERSONA_NAME" envDefault:"Digital Twin"`
}

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "twin-backend.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createServer(db *gorm.DB, provider llm.Completer, cfg Config) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

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

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	db := createDatabase(cfg.Root)
	cmd.SeedDefaultPersona(db, cfg.DefaultPersonaName)

	provider := cmd.NewProvider(cfg.LLMBaseURL, cfg.OpenAIBaseURL)

	server := createServer(db, provider, cfg)

	log.Printf("local server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v", cfg.Port, err)
	}
}
