// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a registered user of the Discourse application.
// Mobile and Email are unique across all users.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Mobile    string    `gorm:"unique;not null" json:"mobile"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
