package service

import (
	"fmt"
	"strings"
	"testing"

	"discourse/internal/database"
	"discourse/internal/index"
	"discourse/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires real repositories over in-memory sqlite and a miniredis-backed
// index, the same shape the server constructs in production.
type testEnv struct {
	db    *gorm.DB
	store *index.Store
	mr    *miniredis.Miniredis

	users       *UserService
	discussions *DiscussionService
	comments    *CommentService
	likes       *LikeService
	follows     *FollowService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := index.NewWithClient(rdb)

	userRepo := repository.NewUserRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	followRepo := repository.NewFollowRepository(db)

	projector := index.NewProjector(store)
	queries := index.NewQueries(store)

	likes := NewLikeService(likeRepo, targetRepo, discussionRepo, commentRepo, projector, queries)
	discussions := NewDiscussionService(discussionRepo, commentRepo, likes, projector, queries)
	comments := NewCommentService(commentRepo, discussionRepo, likes, projector, queries)

	return &testEnv{
		db:          db,
		store:       store,
		mr:          mr,
		users:       NewUserService(userRepo, followRepo, discussions, comments, likes, projector, queries),
		discussions: discussions,
		comments:    comments,
		likes:       likes,
		follows:     NewFollowService(followRepo, userRepo, projector, queries),
	}
}

func registerInput() RegisterUserInput {
	return RegisterUserInput{
		Name:         gofakeit.Name(),
		Mobile:       gofakeit.DigitN(10),
		Email:        gofakeit.DigitN(8) + gofakeit.Email(),
		PasswordHash: "hashed",
	}
}
