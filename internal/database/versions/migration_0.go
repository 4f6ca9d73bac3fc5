package versions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot of the schema at migration 0. Later migrations must not reuse
// these types; they snapshot their own.

type Persona struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	Settings     datatypes.JSON
	CreationTime time.Time
}

type Prompt struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string    `gorm:"not null"`
	Content      string    `gorm:"not null"`
	CreationTime time.Time
}

type Chat struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string
	PersonaId uuid.UUID `gorm:"type:uuid"`
	Persona   *Persona  `gorm:"foreignKey:PersonaId"`

	PromptId uuid.NullUUID `gorm:"type:uuid"`
	Prompt   *Prompt       `gorm:"foreignKey:PromptId"`

	CreationTime time.Time

	Messages []ChatMessage `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
}

type ChatMessage struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatId uuid.UUID `gorm:"type:uuid;index"`

	UserMessage string
	Assistant   string

	PromptId uuid.NullUUID `gorm:"type:uuid"`

	MessageTime time.Time
}

func Migration0(db *gorm.DB) error {
	if err := db.Migrator().AutoMigrate(&Persona{}, &Prompt{}, &Chat{}, &ChatMessage{}); err != nil {
		return fmt.Errorf("error creating initial tables: %w", err)
	}
	return nil
}
