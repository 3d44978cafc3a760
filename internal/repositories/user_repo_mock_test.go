package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"katalog/internal/models"
	"katalog/internal/repositories"
)

func TestMockUserRepository(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	user := &models.User{Email: "admin@example.com", Name: "Administrator", Role: models.RoleAdmin}
	assert.NoError(t, repo.Create(user))
	assert.NotZero(t, user.ID)

	found, err := repo.GetByEmail(user.Email)
	assert.NoError(t, err)
	assert.True(t, found.IsAdmin())

	// Emails are unique.
	assert.Error(t, repo.Create(&models.User{Email: user.Email}))

	_, err = repo.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
