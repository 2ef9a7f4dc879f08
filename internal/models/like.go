package models

import "time"

// Like records that a user liked a target entity.
// The (user_id, target_entity_id) pair is unique: liking the same target
// twice is a conflict, not a second row.
type Like struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TargetEntityID uint      `gorm:"not null;uniqueIndex:idx_like_user_target" json:"target_entity_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_like_user_target" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}
