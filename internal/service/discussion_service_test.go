package service

import (
	"context"
	"testing"

	"discourse/internal/index"
	"discourse/internal/models"
	"discourse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscussionService_CreateSearchUpdateSearch(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	author, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)

	discussion, err := env.discussions.CreateDiscussion(ctx, CreateDiscussionInput{
		UserID:   author.ID,
		Text:     "thoughts on eventual consistency",
		Hashtags: "#distsys",
	})
	require.NoError(t, err)

	found, err := env.discussions.SearchByText(ctx, "eventual", index.PageRequest{})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, discussion.ID, found.Items[0].ID)

	newText := "strict serializability in practice"
	_, err = env.discussions.UpdateDiscussion(ctx, UpdateDiscussionInput{
		ActorID:      author.ID,
		DiscussionID: discussion.ID,
		Text:         &newText,
	})
	require.NoError(t, err)

	// Only the current text is searchable.
	stale, err := env.discussions.SearchByText(ctx, "eventual", index.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, stale.Items)

	fresh, err := env.discussions.SearchByText(ctx, "serializability", index.PageRequest{})
	require.NoError(t, err)
	require.Len(t, fresh.Items, 1)
	assert.Equal(t, discussion.ID, fresh.Items[0].ID)
}

func TestDiscussionService_OnlyAuthorMutates(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	author, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)
	other, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)

	discussion, err := env.discussions.CreateDiscussion(ctx, CreateDiscussionInput{
		UserID: author.ID,
		Text:   "mine",
	})
	require.NoError(t, err)

	text := "stolen"
	_, err = env.discussions.UpdateDiscussion(ctx, UpdateDiscussionInput{
		ActorID:      other.ID,
		DiscussionID: discussion.ID,
		Text:         &text,
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)

	err = env.discussions.DeleteDiscussion(ctx, other.ID, discussion.ID)
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

func TestDiscussionService_DeleteRemovesFromIndex(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	author, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)

	discussion, err := env.discussions.CreateDiscussion(ctx, CreateDiscussionInput{
		UserID:   author.ID,
		Text:     "to be removed",
		Hashtags: "#gone",
	})
	require.NoError(t, err)
	require.NoError(t, env.discussions.DeleteDiscussion(ctx, author.ID, discussion.ID))

	page, err := env.discussions.ListByUser(ctx, author.ID, index.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
}

func TestDiscussionService_DeleteCascadesCommentsAndLikes(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	author, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)
	commenter, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)

	discussion, err := env.discussions.CreateDiscussion(ctx, CreateDiscussionInput{
		UserID: author.ID,
		Text:   "thread with attachments",
	})
	require.NoError(t, err)

	comment, err := env.comments.CreateComment(ctx, CreateCommentInput{
		UserID:       commenter.ID,
		DiscussionID: discussion.ID,
		Text:         "first",
	})
	require.NoError(t, err)

	_, err = env.likes.CreateLike(ctx, CreateLikeInput{
		UserID: commenter.ID, EntityType: models.EntityTypeDiscussion, EntityID: discussion.ID,
	})
	require.NoError(t, err)
	_, err = env.likes.CreateLike(ctx, CreateLikeInput{
		UserID: author.ID, EntityType: models.EntityTypeComment, EntityID: comment.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.discussions.DeleteDiscussion(ctx, author.ID, discussion.ID))

	// Nothing hangs off the deleted thread in the record store.
	var comments, likes, targets int64
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, env.db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, env.db.Model(&models.TargetEntity{}).Count(&targets).Error)
	assert.Equal(t, int64(0), comments)
	assert.Equal(t, int64(0), likes)
	assert.Equal(t, int64(0), targets)

	// The index listings are swept too.
	commentPage, err := env.comments.ListByUser(ctx, commenter.ID, index.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, commentPage.Items)
	likePage, err := env.likes.ListByUser(ctx, commenter.ID, index.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, likePage.Items)
}

func TestDiscussionService_IndexDownDoesNotFailWrite(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	author, err := env.users.Register(ctx, registerInput())
	require.NoError(t, err)

	// A projector with no store at all: projection becomes a logged no-op.
	deadProjector := index.NewProjector(nil)
	likes := NewLikeService(
		repository.NewLikeRepository(env.db),
		repository.NewTargetRepository(env.db),
		repository.NewDiscussionRepository(env.db),
		repository.NewCommentRepository(env.db),
		deadProjector,
		index.NewQueries(env.store),
	)
	svc := NewDiscussionService(
		repository.NewDiscussionRepository(env.db),
		repository.NewCommentRepository(env.db),
		likes,
		deadProjector,
		index.NewQueries(env.store),
	)

	discussion, err := svc.CreateDiscussion(ctx, CreateDiscussionInput{
		UserID: author.ID,
		Text:   "written despite a dead index",
	})
	require.NoError(t, err)
	assert.NotZero(t, discussion.ID)

	// The canonical row exists even though nothing was projected.
	var count int64
	require.NoError(t, env.db.Model(&models.Discussion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
