package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps the Redis client that backs the secondary index. Each Put is
// deterministic for a given document, so replaying a projection is a no-op at
// the byte level. Writes that touch more than one key go through a
// transactional pipeline so the document and its ordering entries stay
// consistent with each other.
type Store struct {
	rdb *redis.Client
}

// New connects to the index store and verifies the connection.
func New(addr string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to index store: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Ping reports whether the index store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.rdb == nil {
		return errors.New("index store not configured")
	}
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) available() bool {
	return s != nil && s.rdb != nil
}

// PutDiscussion upserts the discussion document together with its ordering
// and hashtag entries. Tags dropped by an edit are removed from their sets.
func (s *Store) PutDiscussion(ctx context.Context, doc DiscussionDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	prev, err := s.GetDiscussion(ctx, doc.ID)
	if err != nil {
		return err
	}

	member := formatID(doc.ID)
	score := float64(doc.CreatedAt.UnixNano())

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, discussionKey(doc.ID), payload, 0)
	pipe.ZAdd(ctx, allKey(CollectionDiscussions), redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, byUserKey(CollectionDiscussions, doc.UserID), redis.Z{Score: score, Member: member})
	for _, tag := range doc.Hashtags {
		pipe.SAdd(ctx, discussionTagKey(tag), member)
	}
	if prev != nil {
		for _, tag := range removedTags(prev.Hashtags, doc.Hashtags) {
			pipe.SRem(ctx, discussionTagKey(tag), member)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetDiscussion fetches a single discussion document. A missing document is
// (nil, nil).
func (s *Store) GetDiscussion(ctx context.Context, id uint) (*DiscussionDoc, error) {
	raw, err := s.rdb.Get(ctx, discussionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc DiscussionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDiscussion removes the document and all entries pointing at it.
func (s *Store) DeleteDiscussion(ctx context.Context, id uint) error {
	prev, err := s.GetDiscussion(ctx, id)
	if err != nil {
		return err
	}

	member := formatID(id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, discussionKey(id))
	pipe.ZRem(ctx, allKey(CollectionDiscussions), member)
	if prev != nil {
		pipe.ZRem(ctx, byUserKey(CollectionDiscussions, prev.UserID), member)
		for _, tag := range prev.Hashtags {
			pipe.SRem(ctx, discussionTagKey(tag), member)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// PutComment upserts the comment document and its ordering entries.
func (s *Store) PutComment(ctx context.Context, doc CommentDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	member := formatID(doc.ID)
	score := float64(doc.CreatedAt.UnixNano())

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, commentKey(doc.ID), payload, 0)
	pipe.ZAdd(ctx, allKey(CollectionComments), redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, byUserKey(CollectionComments, doc.UserID), redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, commentsByDiscussionKey(doc.DiscussionID), redis.Z{Score: score, Member: member})
	_, err = pipe.Exec(ctx)
	return err
}

// GetComment fetches a single comment document, (nil, nil) when absent.
func (s *Store) GetComment(ctx context.Context, id uint) (*CommentDoc, error) {
	raw, err := s.rdb.Get(ctx, commentKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc CommentDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteComment removes the comment document and its ordering entries.
func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	prev, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}

	member := formatID(id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, commentKey(id))
	pipe.ZRem(ctx, allKey(CollectionComments), member)
	if prev != nil {
		pipe.ZRem(ctx, byUserKey(CollectionComments, prev.UserID), member)
		pipe.ZRem(ctx, commentsByDiscussionKey(prev.DiscussionID), member)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// PutLike upserts the like document and its ordering entries.
func (s *Store) PutLike(ctx context.Context, doc LikeDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	member := formatID(doc.ID)
	score := float64(doc.CreatedAt.UnixNano())

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, likeKey(doc.ID), payload, 0)
	pipe.ZAdd(ctx, allKey(CollectionLikes), redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, byUserKey(CollectionLikes, doc.UserID), redis.Z{Score: score, Member: member})
	_, err = pipe.Exec(ctx)
	return err
}

// GetLike fetches a single like document, (nil, nil) when absent.
func (s *Store) GetLike(ctx context.Context, id uint) (*LikeDoc, error) {
	raw, err := s.rdb.Get(ctx, likeKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc LikeDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteLike removes the like document and its ordering entries.
func (s *Store) DeleteLike(ctx context.Context, id uint) error {
	prev, err := s.GetLike(ctx, id)
	if err != nil {
		return err
	}

	member := formatID(id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, likeKey(id))
	pipe.ZRem(ctx, allKey(CollectionLikes), member)
	if prev != nil {
		pipe.ZRem(ctx, byUserKey(CollectionLikes, prev.UserID), member)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// PutUser upserts the user document and its ordering entry.
func (s *Store) PutUser(ctx context.Context, doc UserDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	member := formatID(doc.ID)
	score := float64(doc.CreatedAt.UnixNano())

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, userKey(doc.ID), payload, 0)
	pipe.ZAdd(ctx, allKey(CollectionUsers), redis.Z{Score: score, Member: member})
	_, err = pipe.Exec(ctx)
	return err
}

// GetUser fetches a single user document, (nil, nil) when absent.
func (s *Store) GetUser(ctx context.Context, id uint) (*UserDoc, error) {
	raw, err := s.rdb.Get(ctx, userKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc UserDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteUser removes the user document and its ordering entry.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	member := formatID(id)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, userKey(id))
	pipe.ZRem(ctx, allKey(CollectionUsers), member)
	_, err := pipe.Exec(ctx)
	return err
}

// PutFollow upserts the follow document and both direction sets.
func (s *Store) PutFollow(ctx context.Context, doc FollowDoc) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, followKey(doc.FollowerID, doc.FolloweeID), payload, 0)
	pipe.SAdd(ctx, followersKey(doc.FolloweeID), formatID(doc.FollowerID))
	pipe.SAdd(ctx, followingKey(doc.FollowerID), formatID(doc.FolloweeID))
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteFollow removes the follow document and both direction entries.
func (s *Store) DeleteFollow(ctx context.Context, followerID, followeeID uint) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, followKey(followerID, followeeID))
	pipe.SRem(ctx, followersKey(followeeID), formatID(followerID))
	pipe.SRem(ctx, followingKey(followerID), formatID(followeeID))
	_, err := pipe.Exec(ctx)
	return err
}

// removedTags returns the tags present in prev but not in next.
func removedTags(prev, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, t := range next {
		keep[t] = struct{}{}
	}
	var removed []string
	for _, t := range prev {
		if _, ok := keep[t]; !ok {
			removed = append(removed, t)
		}
	}
	return removed
}
