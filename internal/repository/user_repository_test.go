package repository

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruise-booking/internal/model"
)

func TestUserRepository_GetByID(t *testing.T) {
	pool, db := setupTestDB(t)
	repo := NewUserRepository(pool, zerolog.Nop())
	ctx := context.Background()
	db.Truncate(t)

	_, err := pool.Exec(ctx, `INSERT INTO users (id, email, display_name, role) VALUES ('u1', 'a@b.com', 'Alice', 'admin')`)
	require.NoError(t, err)

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, "Alice", u.DisplayName)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}
