// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/dbx"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/auth"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/config"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/policy"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buoytelemetry/internal/validation"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	clock                        policy.Clock
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, clock policy.Clock, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		clock:                        clock,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register validates reg and creates the user with a bcrypt-hashed password.
// A taken username or email yields common.ErrDuplicateUser.
func (s *UserService) Register(ctx context.Context, reg *models.Registration) (*models.User, error) {
	if err := validation.ValidateStruct(reg); err != nil {
		return nil, err
	}
	role, err := policy.ParseRole(reg.Role)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, reg.Username, reg.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user: %w", err)
	}
	if exists {
		return nil, common.ErrDuplicateUser
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u, err := repo.Create(ctx, &models.User{
		Username:     reg.Username,
		PasswordHash: hash,
		Email:        reg.Email,
		Role:         string(role),
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the credentials and returns a new TokenPair. Unknown users
// and wrong passwords fail identically with common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, creds *models.Credentials) (*TokenPair, error) {
	if err := validation.ValidateStruct(creds); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.BurnPasswordCheck(creds.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		return nil, common.ErrInvalidCredentials
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair carrying the user's current role.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", common.ErrValidation)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		token, err := tokens.Find(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if token.Expires.Before(s.clock.Now()) {
			return common.ErrRefreshTokenExpired
		}

		// Only the rotation whose delete removes the row may mint a pair.
		if err := tokens.Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}
	now := s.clock.Now()
	tokens := s.repomanager.RefreshTokens(tx)
	if _, err := tokens.PurgeExpired(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("error purging refresh tokens: %w", err)
	}
	if err := tokens.Create(ctx, user.ID, refresh, now.Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
