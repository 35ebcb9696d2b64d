package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/microservices/http-api/models"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/middleware/auth"
	"cinelist/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameInUse          = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrEmailInUse         = errors.New("email already in use")
)

const tokenTypeAccess = "access"

type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	// Login accepts a username or an email as identifier.
	Login(ctx context.Context, identifier, password string) (accessToken, refreshToken string, user *models.User, err error)
	// RefreshAccessToken rotates the refresh token and issues a new access token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (newAccessToken, newRefreshToken string, err error)
	RevokeToken(ctx context.Context, refreshToken string) error
	ValidateToken(tokenString string) (*shared.AuthClaims, error)
	AccessTokenTTL() time.Duration
}

type accessClaims struct {
	shared.AuthClaims
	Type string `json:"type"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtSecret        string
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
	now              func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        cfg.JWTSecret,
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
		now:              time.Now,
	}
}

func (s *authService) AccessTokenTTL() time.Duration { return s.accessTokenTTL }

// Register: registers a new user with the given username, password, and email.
func (s *authService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrNameInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    strings.ToLower(email),
		Password: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login: authenticates a user and returns access and refresh tokens.
// An identifier without "@" is treated as a username and resolved to its email first.
func (s *authService) Login(ctx context.Context, identifier, password string) (string, string, *models.User, error) {
	email := identifier
	if !strings.Contains(identifier, "@") {
		resolved, err := s.userRepo.EmailForUsername(ctx, identifier)
		if err != nil {
			auth.BurnCompare(password)
			return "", "", nil, ErrInvalidCredentials
		}
		email = resolved
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		auth.BurnCompare(password)
		return "", "", nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, err
	}
	refreshToken, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", nil, err
	}

	// best effort, a stale last_login never blocks sign-in
	_ = s.userRepo.TouchLastLogin(ctx, user.ID)

	return accessToken, refreshToken, user, nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := accessClaims{
		AuthClaims: shared.AuthClaims{UserID: user.ID, Username: user.Username},
		Type:       tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateRefreshToken(ctx context.Context, userID string) (string, error) {
	refreshToken := &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     uuid.New().String(),
		ExpiresAt: s.now().Add(s.refreshTokenTTL),
	}
	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return refreshToken.Token, nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	if s.now().After(refreshToken.ExpiresAt) {
		_ = s.refreshTokenRepo.Revoke(ctx, refreshToken.ID)
		return "", "", ErrExpiredToken
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken.ID); err != nil {
		return "", "", err
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", err
	}
	newRefresh, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefresh, nil
}

func (s *authService) RevokeToken(ctx context.Context, refreshTokenString string) error {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		return ErrInvalidToken
	}
	return s.refreshTokenRepo.Revoke(ctx, refreshToken.ID)
}

func (s *authService) ValidateToken(tokenString string) (*shared.AuthClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Type != tokenTypeAccess || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims.AuthClaims, nil
}
