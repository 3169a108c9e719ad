package services

import (
	"context"

	"github.com/gigline/backstage/internal/database"
	"github.com/gigline/backstage/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	jwtService *JWTService
}

func NewAuthService(jwtService *JWTService) *AuthService {
	return &AuthService{
		jwtService: jwtService,
	}
}

// HashPassword hashes a password using bcrypt
func (a *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func (a *AuthService) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateUser creates a new dev user with hashed password
func (a *AuthService) CreateUser(ctx context.Context, email, password, username, role string) (*models.DevUser, error) {
	hash, err := a.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.DevUser{
		Email:        email,
		PasswordHash: hash,
		Username:     username,
		Role:         role,
		IsActive:     true,
	}

	_, err = database.DB.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves a dev user by email
func (a *AuthService) GetUserByEmail(ctx context.Context, email string) (*models.DevUser, error) {
	user := new(models.DevUser)
	err := database.DB.NewSelect().
		Model(user).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a dev user by ID
func (a *AuthService) GetUserByID(ctx context.Context, id int64) (*models.DevUser, error) {
	user := new(models.DevUser)
	err := database.DB.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLastLogin updates the last_login_at timestamp
func (a *AuthService) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := database.DB.NewUpdate().
		Model((*models.DevUser)(nil)).
		Set("last_login_at = CURRENT_TIMESTAMP").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// GenerateToken generates a JWT token for a dev user
func (a *AuthService) GenerateToken(user *models.DevUser) (string, error) {
	return a.jwtService.GenerateToken(user.ID, user.Email, user.Username, user.Role)
}

// ValidateToken validates a JWT token and returns claims
func (a *AuthService) ValidateToken(token string) (*JWTClaims, error) {
	return a.jwtService.ValidateToken(token)
}
