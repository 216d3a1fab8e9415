package model

import "time"

// Document is an administrator-managed reference document folded into the
// instruction payload while Active is true. Name is the primary key, so a
// re-upload under the same name replaces the row.
type Document struct {
	Name       string    `gorm:"primaryKey;size:256" json:"name"`
	Content    string    `gorm:"type:longtext;not null" json:"content"`
	UploadedAt time.Time `gorm:"not null;index" json:"uploaded_at"`
	Active     bool      `gorm:"not null;index" json:"active"`
}

func (Document) TableName() string {
	return "documents"
}
