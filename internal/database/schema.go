package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Persona is the "brain" behind a chat. Its display name is spliced into
// the default system prompt when no override prompt is bound.
type Persona struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"not null"`
	Settings     datatypes.JSON
	CreationTime time.Time
}

// Prompt is a stored override that replaces the persona-derived default
// system message entirely when bound to a chat.
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

// ChatMessage holds one question/answer exchange. The streaming path
// creates the row with an empty Assistant and fills it in once the
// provider finishes; no other column is ever updated in place.
type ChatMessage struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatId uuid.UUID `gorm:"type:uuid;index"`

	UserMessage string
	Assistant   string

	PromptId uuid.NullUUID `gorm:"type:uuid"`

	MessageTime time.Time
}
