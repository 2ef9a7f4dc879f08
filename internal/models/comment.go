// Package models contains data structures for the application's domain models.
package models

import "time"

// Comment represents a comment on a discussion. Only its author may mutate it.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	DiscussionID uint      `gorm:"not null;index" json:"discussion_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
