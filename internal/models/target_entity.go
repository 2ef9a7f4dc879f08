package models

// EntityType identifies the kind of object a like attaches to.
type EntityType string

const (
	// EntityTypeDiscussion marks a liked discussion.
	EntityTypeDiscussion EntityType = "discussion"
	// EntityTypeComment marks a liked comment.
	EntityTypeComment EntityType = "comment"
)

// Valid reports whether the entity type is one of the known kinds.
func (t EntityType) Valid() bool {
	return t == EntityTypeDiscussion || t == EntityTypeComment
}

// TargetEntity is the deduplicated handle for "the thing being liked".
// At most one row exists per (entity_type, entity_id) pair; rows are created
// lazily on first like and removed when the last referencing Like is deleted.
type TargetEntity struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EntityType EntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_target_kind_entity" json:"entity_type"`
	EntityID   uint       `gorm:"not null;uniqueIndex:idx_target_kind_entity" json:"entity_id"`
}
