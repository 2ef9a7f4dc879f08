// Package index implements the secondary query store: one denormalized,
// queryable document per canonical row, projected into Redis after every
// record-store mutation. All listing, search and relationship reads are
// served from here; the record store is never consulted for pagination.
package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Collection names. Document keys are "idx:<collection>:<id>".
const (
	CollectionDiscussions = "discussions"
	CollectionComments    = "comments"
	CollectionLikes       = "likes"
	CollectionUsers       = "users"
	CollectionFollows     = "follows"
)

// DiscussionDoc is the projected form of a Discussion row.
type DiscussionDoc struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	Image     string    `json:"image"`
	Hashtags  []string  `json:"hashtags"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentDoc is the projected form of a Comment row.
type CommentDoc struct {
	ID           uint      `json:"id"`
	Text         string    `json:"text"`
	DiscussionID uint      `json:"discussion_id"`
	UserID       uint      `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// LikeDoc is the projected form of a Like row. It carries the resolved
// entity kind and id from the TargetEntity, not the foreign key, so index
// readers never need the dedup table.
type LikeDoc struct {
	ID         uint      `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	UserID     uint      `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserDoc is the projected form of a User row, minus the credential.
type UserDoc struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowDoc is the projected form of a Follow row. Its document id is the
// composite "<follower>_<followee>" string.
type FollowDoc struct {
	FollowerID uint      `json:"follower_id"`
	FolloweeID uint      `json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocID returns the composite document key suffix for a follow edge.
func (d FollowDoc) DocID() string {
	return FollowDocID(d.FollowerID, d.FolloweeID)
}

// FollowDocID builds the "<follower>_<followee>" document id.
func FollowDocID(followerID, followeeID uint) string {
	return fmt.Sprintf("%d_%d", followerID, followeeID)
}

func docKey(collection, id string) string {
	return "idx:" + collection + ":" + id
}

func discussionKey(id uint) string { return docKey(CollectionDiscussions, formatID(id)) }
func commentKey(id uint) string    { return docKey(CollectionComments, formatID(id)) }
func likeKey(id uint) string       { return docKey(CollectionLikes, formatID(id)) }
func userKey(id uint) string       { return docKey(CollectionUsers, formatID(id)) }

func followKey(followerID, followeeID uint) string {
	return docKey(CollectionFollows, FollowDocID(followerID, followeeID))
}

// Ordering and relationship keys.
func allKey(collection string) string { return "idx:" + collection + ":all" }

func byUserKey(collection string, userID uint) string {
	return fmt.Sprintf("idx:%s:by_user:%d", collection, userID)
}

func commentsByDiscussionKey(discussionID uint) string {
	return fmt.Sprintf("idx:%s:by_discussion:%d", CollectionComments, discussionID)
}

func discussionTagKey(tag string) string {
	return "idx:" + CollectionDiscussions + ":tag:" + tag
}

func followersKey(userID uint) string {
	return fmt.Sprintf("idx:%s:followers:%d", CollectionFollows, userID)
}

func followingKey(userID uint) string {
	return fmt.Sprintf("idx:%s:following:%d", CollectionFollows, userID)
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// NormalizeHashtags turns a raw hashtag string ("#Go, #backend #go") into a
// sorted, deduplicated, lowercased slice. Deterministic output keeps repeated
// projections of the same row byte-identical.
func NormalizeHashtags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})

	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.ToLower(strings.TrimSpace(f))
		if tag == "" || tag == "#" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// NormalizeTag canonicalizes a single hashtag query term.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag != "" && !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}
