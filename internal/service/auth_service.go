package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/oriontel/backoffice-api/internal/models"
	"github.com/oriontel/backoffice-api/pkg/config"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

// UserStore is the persistence surface AuthService depends on.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	users      UserStore
	secret     []byte
	expiration time.Duration
	validate   *validator.Validate
}

// NewAuthService wires the auth service from JWT configuration.
func NewAuthService(users UserStore, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		users:      users,
		secret:     []byte(cfg.Secret),
		expiration: cfg.Expiration,
		validate:   validator.New(),
	}
}

// Register creates an account with a bcrypt-hashed password and signs
// the caller in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}
	if !req.Role.Valid() {
		return nil, appErrors.New(http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role))
	}

	taken, err := s.users.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to check account")
	}
	if taken {
		return nil, appErrors.New(http.StatusBadRequest, "username or email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to create user")
	}

	return s.issue(user)
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.New(http.StatusBadRequest, err.Error())
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.New(http.StatusUnauthorized, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.New(http.StatusUnauthorized, "invalid credentials")
	}

	return s.issue(user)
}

// ValidateToken parses a bearer token into the caller's principal.
func (s *AuthService) ValidateToken(tokenString string) (*models.AuthPrincipal, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.New(http.StatusUnauthorized, "invalid or expired token")
	}
	return &models.AuthPrincipal{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, appErrors.Wrap(err, http.StatusInternalServerError, "failed to sign token")
	}
	return &models.AuthResponse{Token: signed, User: *user}, nil
}
