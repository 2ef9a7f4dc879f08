package repository

import (
	"fmt"
	"strings"
	"testing"

	"discourse/internal/database"
	"discourse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a per-test in-memory sqlite database with the canonical
// schema. One connection max: sqlite's table locks otherwise make concurrent
// writers flaky.
func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Name:     gofakeit.Name(),
		Mobile:   gofakeit.Phone() + gofakeit.DigitN(6),
		Email:    gofakeit.DigitN(8) + gofakeit.Email(),
		Password: "hashed-password",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestDiscussion(t *testing.T, db *gorm.DB, userID uint) *models.Discussion {
	t.Helper()
	discussion := &models.Discussion{
		Text:     gofakeit.Sentence(8),
		Hashtags: "#test",
		UserID:   userID,
	}
	require.NoError(t, db.Create(discussion).Error)
	return discussion
}
