package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"katalog/internal/models"
	"katalog/internal/repositories"
)

// ErrInvalidCredentials is returned on any login failure. It is
// deliberately the same for an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles login, logout and per-request identity
// resolution. A session stores only the user's email; the full user
// (and therefore the role) is re-read from the repository on every
// request, never cached in the token.
type AuthService struct {
	userRepo repositories.UserRepository
	sessions repositories.SessionStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, sessions repositories.SessionStore) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
	}
}

// Register registers a new user, hashes their password, and saves them.
// New accounts always start as customers; role and department are never
// taken from the request.
func (s *AuthService) Register(user *models.User) error {
	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return fmt.Errorf("email '%s' already registered", user.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	user.Role = models.RoleCustomer
	user.Department = ""

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Login validates the credentials and establishes a session. On
// success it returns the session token and the logged-in user; the
// caller routes admins and customers to their landing pages.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	return token, user, nil
}

// Logout clears the session. Unknown tokens are not an error; the end
// state is Anonymous either way.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// CurrentUser resolves a session token to the full user record.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("no session token: %w", repositories.ErrNotFound)
	}
	email, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByEmail(email)
}

// SetNotice stores a read-once notice on the session for display after
// the next redirect.
func (s *AuthService) SetNotice(ctx context.Context, token, message string) {
	if token == "" {
		return
	}
	// A lost notice is cosmetic, the write already succeeded.
	if err := s.sessions.SetFlash(ctx, token, message); err != nil {
		log.Printf("Warning: failed to store notice: %v", err)
	}
}

// Notice returns and clears the pending notice for the session, or ""
// when none is pending.
func (s *AuthService) Notice(ctx context.Context, token string) string {
	if token == "" {
		return ""
	}
	message, err := s.sessions.Flash(ctx, token)
	if err != nil {
		return ""
	}
	return message
}
