package index

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"discourse/internal/middleware"
	"discourse/internal/models"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

// PageRequest carries 1-based pagination parameters. Zero or negative values
// fall back to the defaults.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize applies defaults and caps the page size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PerPage
}

// Page is one page of index documents plus the total count of everything
// matching the query, independent of the requested page.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// Queries is the read side of the index: every paginated listing and search
// in the API is answered here, from index data alone. When the store is down
// these calls fail; there is no record-store fallback for reads.
type Queries struct {
	store *Store
}

// NewQueries builds the query layer over the given store, which may be nil.
func NewQueries(store *Store) *Queries {
	return &Queries{store: store}
}

func (q *Queries) fail(name string, err error) error {
	middleware.IndexQueryErrors.WithLabelValues(name).Inc()
	return models.NewIndexUnavailableError(err)
}

func (q *Queries) ready(name string) error {
	if !q.store.available() {
		return q.fail(name, errStoreUnavailable)
	}
	return nil
}

// Discussions lists all discussions, newest first.
func (q *Queries) Discussions(ctx context.Context, pr PageRequest) (*Page[DiscussionDoc], error) {
	return zsetPage[DiscussionDoc](ctx, q, "discussions", allKey(CollectionDiscussions), pr, discussionKey)
}

// DiscussionsByUser lists one author's discussions, newest first.
func (q *Queries) DiscussionsByUser(ctx context.Context, userID uint, pr PageRequest) (*Page[DiscussionDoc], error) {
	return zsetPage[DiscussionDoc](ctx, q, "discussions_by_user", byUserKey(CollectionDiscussions, userID), pr, discussionKey)
}

// SearchDiscussionsByText returns discussions whose text contains the term,
// case-insensitively, newest first.
func (q *Queries) SearchDiscussionsByText(ctx context.Context, text string, pr PageRequest) (*Page[DiscussionDoc], error) {
	const name = "discussions_search_text"
	if err := q.ready(name); err != nil {
		return nil, err
	}
	pr = pr.Normalize()

	ids, err := q.store.rdb.ZRevRange(ctx, allKey(CollectionDiscussions), 0, -1).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}
	docs, err := fetchDocs[DiscussionDoc](ctx, q.store, ids, discussionKeyStr)
	if err != nil {
		return nil, q.fail(name, err)
	}

	needle := strings.ToLower(text)
	matches := docs[:0]
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Text), needle) {
			matches = append(matches, doc)
		}
	}
	return slicePage(matches, pr), nil
}

// SearchDiscussionsByTag returns discussions carrying the hashtag, newest
// first. The tag is canonicalized before lookup.
func (q *Queries) SearchDiscussionsByTag(ctx context.Context, tag string, pr PageRequest) (*Page[DiscussionDoc], error) {
	const name = "discussions_search_tag"
	if err := q.ready(name); err != nil {
		return nil, err
	}
	pr = pr.Normalize()

	ids, err := q.store.rdb.SMembers(ctx, discussionTagKey(NormalizeTag(tag))).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}
	docs, err := fetchDocs[DiscussionDoc](ctx, q.store, ids, discussionKeyStr)
	if err != nil {
		return nil, q.fail(name, err)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return slicePage(docs, pr), nil
}

// CommentsByDiscussion lists a discussion's comments, newest first.
func (q *Queries) CommentsByDiscussion(ctx context.Context, discussionID uint, pr PageRequest) (*Page[CommentDoc], error) {
	return zsetPage[CommentDoc](ctx, q, "comments_by_discussion", commentsByDiscussionKey(discussionID), pr, commentKey)
}

// CommentsByUser lists one author's comments, newest first.
func (q *Queries) CommentsByUser(ctx context.Context, userID uint, pr PageRequest) (*Page[CommentDoc], error) {
	return zsetPage[CommentDoc](ctx, q, "comments_by_user", byUserKey(CollectionComments, userID), pr, commentKey)
}

// LikesByUser lists a user's likes, newest first.
func (q *Queries) LikesByUser(ctx context.Context, userID uint, pr PageRequest) (*Page[LikeDoc], error) {
	return zsetPage[LikeDoc](ctx, q, "likes_by_user", byUserKey(CollectionLikes, userID), pr, likeKey)
}

// Users lists all users, newest first.
func (q *Queries) Users(ctx context.Context, pr PageRequest) (*Page[UserDoc], error) {
	return zsetPage[UserDoc](ctx, q, "users", allKey(CollectionUsers), pr, userKey)
}

// SearchUsersByName returns users whose name contains the term,
// case-insensitively, newest first.
func (q *Queries) SearchUsersByName(ctx context.Context, term string, pr PageRequest) (*Page[UserDoc], error) {
	const name = "users_search"
	if err := q.ready(name); err != nil {
		return nil, err
	}
	pr = pr.Normalize()

	ids, err := q.store.rdb.ZRevRange(ctx, allKey(CollectionUsers), 0, -1).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}
	docs, err := fetchDocs[UserDoc](ctx, q.store, ids, userKeyStr)
	if err != nil {
		return nil, q.fail(name, err)
	}

	needle := strings.ToLower(term)
	matches := docs[:0]
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Name), needle) {
			matches = append(matches, doc)
		}
	}
	return slicePage(matches, pr), nil
}

// Followers lists the user documents of everyone following userID. The total
// is the relationship set cardinality; follower ids whose user document is
// missing are dropped from the page without shrinking the total.
func (q *Queries) Followers(ctx context.Context, userID uint, pr PageRequest) (*Page[UserDoc], error) {
	return q.relationshipPage(ctx, "followers", followersKey(userID), pr)
}

// Following lists the user documents of everyone userID follows.
func (q *Queries) Following(ctx context.Context, userID uint, pr PageRequest) (*Page[UserDoc], error) {
	return q.relationshipPage(ctx, "following", followingKey(userID), pr)
}

func (q *Queries) relationshipPage(ctx context.Context, name, key string, pr PageRequest) (*Page[UserDoc], error) {
	if err := q.ready(name); err != nil {
		return nil, err
	}
	pr = pr.Normalize()

	total, err := q.store.rdb.SCard(ctx, key).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}
	members, err := q.store.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}

	// Sets are unordered; sort numerically for a stable page walk.
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, perr := strconv.ParseUint(m, 10, 64)
		if perr != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	start := pr.offset()
	if start > len(ids) {
		start = len(ids)
	}
	end := start + pr.PerPage
	if end > len(ids) {
		end = len(ids)
	}

	keys := make([]string, 0, end-start)
	for _, id := range ids[start:end] {
		keys = append(keys, userKey(uint(id)))
	}
	docs, err := mgetDocs[UserDoc](ctx, q.store, keys)
	if err != nil {
		return nil, q.fail(name, err)
	}

	return &Page[UserDoc]{Items: docs, Page: pr.Page, PerPage: pr.PerPage, Total: total}, nil
}

// zsetPage serves the common listing shape: total from ZCard, one page of
// members from ZRevRange, documents via a single MGet.
func zsetPage[T any](ctx context.Context, q *Queries, name, key string, pr PageRequest, keyFn func(uint) string) (*Page[T], error) {
	if err := q.ready(name); err != nil {
		return nil, err
	}
	pr = pr.Normalize()

	total, err := q.store.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}

	start := int64(pr.offset())
	stop := start + int64(pr.PerPage) - 1
	members, err := q.store.rdb.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, q.fail(name, err)
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, perr := strconv.ParseUint(m, 10, 64)
		if perr != nil {
			continue
		}
		keys = append(keys, keyFn(uint(id)))
	}
	docs, err := mgetDocs[T](ctx, q.store, keys)
	if err != nil {
		return nil, q.fail(name, err)
	}

	return &Page[T]{Items: docs, Page: pr.Page, PerPage: pr.PerPage, Total: total}, nil
}

func fetchDocs[T any](ctx context.Context, s *Store, ids []string, keyFn func(string) string) ([]T, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, keyFn(id))
	}
	return mgetDocs[T](ctx, s, keys)
}

func mgetDocs[T any](ctx context.Context, s *Store, keys []string) ([]T, error) {
	docs := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return docs, nil
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// A missing document is skipped rather than failing the page.
			continue
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func slicePage[T any](docs []T, pr PageRequest) *Page[T] {
	total := int64(len(docs))
	start := pr.offset()
	if start > len(docs) {
		start = len(docs)
	}
	end := start + pr.PerPage
	if end > len(docs) {
		end = len(docs)
	}
	items := make([]T, end-start)
	copy(items, docs[start:end])
	return &Page[T]{Items: items, Page: pr.Page, PerPage: pr.PerPage, Total: total}
}

func discussionKeyStr(id string) string { return docKey(CollectionDiscussions, id) }
func userKeyStr(id string) string       { return docKey(CollectionUsers, id) }
