package models

import "time"

// Follow represents a directed follower relationship. The composite primary
// key makes the ordered (follower, followee) pair unique; self-follows are
// rejected before this row is ever written.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
