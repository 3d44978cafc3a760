package repositories

import "katalog/internal/models"

// UserRepository defines the interface for user data access. The
// session subsystem re-resolves the full user by email on every
// request, so GetByEmail is the hot path.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
}
