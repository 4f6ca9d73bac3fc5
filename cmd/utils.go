package cmd

import (
	"flag"
	"log"
	"time"

	"twin-backend/internal/database"
	"twin-backend/internal/llm"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// NewProvider picks the completion client: an OpenAI-compatible server when
// llmBaseURL is set, otherwise the hosted OpenAI endpoint, optionally
// routed through an OpenAI-protocol proxy at openaiBaseURL.
func NewProvider(llmBaseURL, openaiBaseURL string) llm.Completer {
	if llmBaseURL != "" {
		return llm.NewCompat(llmBaseURL)
	}
	if openaiBaseURL != "" {
		return llm.NewOpenAIWithBaseURL(openaiBaseURL)
	}
	return llm.NewOpenAI()
}

// SeedDefaultPersona ensures at least one persona exists so new chats can
// be created out of the box.
func SeedDefaultPersona(db *gorm.DB, name string) {
	var persona database.Persona

	if err := db.Where(database.Persona{Name: name}).Attrs(database.Persona{
		Id:           uuid.New(),
		CreationTime: time.Now().UTC(),
	}).FirstOrCreate(&persona).Error; err != nil {
		log.Fatalf("Failed to create default persona: %v", err)
	}
}
