package types

import (
	"time"

	"gorm.io/datatypes"
)

// ChatSession stores the full message history for one (user, session)
// pair, tool traffic included. The display view is derived at read time.
type ChatSession struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Domain    string         `gorm:"column:domain" json:"domain"`
	Messages  datatypes.JSON `gorm:"column:messages;type:jsonb" json:"messages"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatSession) TableName() string { return "chat_session" }

// SessionID keys a chat session by its collection and session identifiers.
func SessionID(userID, sessionID string) string {
	return userID + "-" + sessionID
}
