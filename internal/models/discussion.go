// Package models contains data structures for the application's domain models.
package models

import "time"

// Discussion represents a discussion post. Only its author may mutate it.
// Hashtags holds the raw hashtag string as posted (e.g. "#go #backend");
// normalization happens at projection time.
type Discussion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Image     string    `json:"image"`
	Hashtags  string    `json:"hashtags"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
