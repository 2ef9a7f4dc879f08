package index

import (
	"context"
	"errors"
	"log/slog"

	"discourse/internal/middleware"
	"discourse/internal/models"
)

var errStoreUnavailable = errors.New("index store unavailable")

// Projector translates canonical rows into index documents and applies them.
// Every call is best effort: failures are logged and counted, never returned,
// so a record-store write that already committed stays committed regardless of
// index health.
type Projector struct {
	store *Store
	log   *slog.Logger
}

// NewProjector builds a projector over the given store. A nil store is
// accepted; every projection then degrades to a logged failure.
func NewProjector(store *Store) *Projector {
	return &Projector{store: store, log: middleware.Logger}
}

// ProjectUser upserts the user document.
func (p *Projector) ProjectUser(ctx context.Context, user *models.User) {
	doc := UserDoc{
		ID:        user.ID,
		Name:      user.Name,
		Mobile:    user.Mobile,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC(),
	}
	p.attempt(ctx, CollectionUsers, "project", formatID(user.ID), func() error {
		return p.store.PutUser(ctx, doc)
	})
}

// DeprojectUser removes the user document.
func (p *Projector) DeprojectUser(ctx context.Context, id uint) {
	p.attempt(ctx, CollectionUsers, "deproject", formatID(id), func() error {
		return p.store.DeleteUser(ctx, id)
	})
}

// ProjectDiscussion upserts the discussion document with normalized hashtags.
func (p *Projector) ProjectDiscussion(ctx context.Context, d *models.Discussion) {
	doc := DiscussionDoc{
		ID:        d.ID,
		Text:      d.Text,
		Image:     d.Image,
		Hashtags:  NormalizeHashtags(d.Hashtags),
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt.UTC(),
	}
	p.attempt(ctx, CollectionDiscussions, "project", formatID(d.ID), func() error {
		return p.store.PutDiscussion(ctx, doc)
	})
}

// DeprojectDiscussion removes the discussion document.
func (p *Projector) DeprojectDiscussion(ctx context.Context, id uint) {
	p.attempt(ctx, CollectionDiscussions, "deproject", formatID(id), func() error {
		return p.store.DeleteDiscussion(ctx, id)
	})
}

// ProjectComment upserts the comment document.
func (p *Projector) ProjectComment(ctx context.Context, c *models.Comment) {
	doc := CommentDoc{
		ID:           c.ID,
		Text:         c.Text,
		DiscussionID: c.DiscussionID,
		UserID:       c.UserID,
		CreatedAt:    c.CreatedAt.UTC(),
	}
	p.attempt(ctx, CollectionComments, "project", formatID(c.ID), func() error {
		return p.store.PutComment(ctx, doc)
	})
}

// DeprojectComment removes the comment document.
func (p *Projector) DeprojectComment(ctx context.Context, id uint) {
	p.attempt(ctx, CollectionComments, "deproject", formatID(id), func() error {
		return p.store.DeleteComment(ctx, id)
	})
}

// ProjectLike upserts the like document. The target row supplies the resolved
// entity kind and id so index readers never touch the dedup table.
func (p *Projector) ProjectLike(ctx context.Context, like *models.Like, target *models.TargetEntity) {
	doc := LikeDoc{
		ID:         like.ID,
		EntityType: string(target.EntityType),
		EntityID:   target.EntityID,
		UserID:     like.UserID,
		CreatedAt:  like.CreatedAt.UTC(),
	}
	p.attempt(ctx, CollectionLikes, "project", formatID(like.ID), func() error {
		return p.store.PutLike(ctx, doc)
	})
}

// DeprojectLike removes the like document.
func (p *Projector) DeprojectLike(ctx context.Context, id uint) {
	p.attempt(ctx, CollectionLikes, "deproject", formatID(id), func() error {
		return p.store.DeleteLike(ctx, id)
	})
}

// ProjectFollow upserts the follow document and both relationship sets.
func (p *Projector) ProjectFollow(ctx context.Context, f *models.Follow) {
	doc := FollowDoc{
		FollowerID: f.FollowerID,
		FolloweeID: f.FolloweeID,
		CreatedAt:  f.CreatedAt.UTC(),
	}
	p.attempt(ctx, CollectionFollows, "project", doc.DocID(), func() error {
		return p.store.PutFollow(ctx, doc)
	})
}

// DeprojectFollow removes the follow document and both relationship entries.
func (p *Projector) DeprojectFollow(ctx context.Context, followerID, followeeID uint) {
	p.attempt(ctx, CollectionFollows, "deproject", FollowDocID(followerID, followeeID), func() error {
		return p.store.DeleteFollow(ctx, followerID, followeeID)
	})
}

func (p *Projector) attempt(ctx context.Context, entity, op, id string, fn func() error) {
	if !p.store.available() {
		p.record(ctx, entity, op, id, errStoreUnavailable)
		return
	}
	if err := fn(); err != nil {
		p.record(ctx, entity, op, id, err)
	}
}

func (p *Projector) record(ctx context.Context, entity, op, id string, err error) {
	middleware.ProjectionFailures.WithLabelValues(entity, op).Inc()
	p.log.ErrorContext(ctx, "index projection failed",
		slog.String("entity", entity),
		slog.String("op", op),
		slog.String("doc_id", id),
		slog.String("error", err.Error()),
	)
}
