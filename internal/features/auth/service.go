package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/internal/utils/jwt"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
}

type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User *user.User `json:"user"`
	TokenPair
}

type TokenConfig struct {
	JWTSecret          string
	JWTRefreshSecret   string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// Register creates a regular account and signs the caller in.
func Register(ctx context.Context, db *gorm.DB, input RegisterInput, cfg TokenConfig) (*AuthResponse, error) {
	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}

	newUser, err := user.Create(ctx, db, user.CreateInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		City:      input.City,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := issue(newUser, cfg)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: &newUser, TokenPair: tokens}, nil
}

// Login checks credentials, stamps last_login and issues tokens.
func Login(ctx context.Context, db *gorm.DB, input LoginInput, cfg TokenConfig, now time.Time) (*AuthResponse, error) {
	usr, err := user.GetByEmail(ctx, db, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !usr.ComparePassword(input.Password) {
		return nil, ErrInvalidCredentials
	}

	if !usr.Active {
		return nil, ErrInactiveAccount
	}

	if err := user.RecordLogin(ctx, db, usr.ID, now); err != nil {
		return nil, err
	}
	usr.LastLogin = &now

	tokens, err := issue(usr, cfg)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: &usr, TokenPair: tokens}, nil
}

// RefreshAccessToken exchanges a refresh token for a new pair. The account
// must still exist and be active.
func RefreshAccessToken(ctx context.Context, db *gorm.DB, refreshToken string, cfg TokenConfig) (TokenPair, error) {
	claims, err := jwt.VerifyToken(refreshToken, cfg.JWTRefreshSecret)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if claims.Purpose != jwt.PurposeRefresh {
		return TokenPair{}, ErrInvalidTokenType
	}

	usr, err := user.Get(ctx, db, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if !usr.Active {
		return TokenPair{}, ErrInactiveAccount
	}

	return issue(usr, cfg)
}

func issue(usr user.User, cfg TokenConfig) (TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(usr.ID, cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(usr.ID, cfg.JWTRefreshSecret, cfg.RefreshTokenExpiry)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
