package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	tokenTTL  = 24 * time.Hour
)

// LoginInput is an operator's credentials for the admin REST API.
type LoginInput struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

type AuthService interface {
	// Login checks an admin's password and issues a signed token carrying
	// the user_id and role claims.
	Login(ctx context.Context, input LoginInput) (string, error)
}

type authService struct {
	authorizer   *Authorizer
	passwordHash []byte
	jwtSecret    []byte
	now          func() time.Time
}

func NewAuthService(authorizer *Authorizer, passwordHash, jwtSecret string) AuthService {
	return &authService{
		authorizer:   authorizer,
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		now:          time.Now,
	}
}

func (s *authService) Login(_ context.Context, input LoginInput) (string, error) {
	if len(s.passwordHash) == 0 || !s.authorizer.IsAdmin(input.UserID) {
		return "", ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to compare password hash: %w", err)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"user_id": input.UserID,
		"role":    RoleAdmin,
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// BcryptCost: стоимость хеша для пароля администратора.
const BcryptCost = 12

// HashPassword produces the value expected in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}
