package model

import "time"

// ChatLog is one completed query/response pair. ID is assigned by the primary
// store and stays zero for entries read back from the fallback file.
type ChatLog struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Query     string    `gorm:"type:longtext;not null" json:"query"`
	Response  string    `gorm:"type:longtext;not null" json:"response"`
}

func (ChatLog) TableName() string {
	return "chat_logs"
}
