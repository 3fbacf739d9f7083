package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func TestGetByID(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	require.Positive(t, created.UserID)

	got, err := repo.GetByID(ctx, created.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Login)
	require.Equal(t, StatusActive, got.Status)

	_, err = repo.GetByID(ctx, created.UserID+100)
	require.ErrorIs(t, err, ErrUserNotFound)
}
