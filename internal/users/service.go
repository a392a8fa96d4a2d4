package users

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/auth"
	"github.com/sabrositas/pos-backend/pkg/auth/session"
	"github.com/sabrositas/pos-backend/pkg/config"
	"github.com/sabrositas/pos-backend/pkg/db"
	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/logger"
	"github.com/sabrositas/pos-backend/pkg/security"
)

// Sessions is the refresh-token side of a login, satisfied by
// session.Manager.
type Sessions interface {
	Generate(ctx context.Context, userID string) (string, error)
	Rotate(ctx context.Context, userID, provided string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// LoginResult carries the tokens handed to a client.
type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// CreateUserInput registers a staff account. The generated temporary
// password is returned once and never stored in clear.
type CreateUserInput struct {
	Email    string         `json:"email"`
	FullName string         `json:"full_name"`
	Role     enums.UserRole `json:"role"`
}

// Service authenticates staff and manages their accounts.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, string, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	db       *gorm.DB
	sessions Sessions
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(conn *gorm.DB, sessions Sessions, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       conn,
		sessions: sessions,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

var _ Sessions = (*session.Manager)(nil)

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New(errors.CodeInvalidInput, "email and password are required")
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Absent and inactive accounts fail the same way as a wrong password.
	if user == nil || !user.Active {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}

	refresh, err := s.sessions.Generate(ctx, user.ID.String())
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err, "storing session")
	}
	return s.buildResult(user, refresh)
}

func (s *service) Refresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*LoginResult, error) {
	if userID == uuid.Nil || refreshToken == "" {
		return nil, errors.New(errors.CodeInvalidInput, "user id and refresh token are required")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, errors.New(errors.CodeUnauthorized, "account disabled")
	}

	rotated, err := s.sessions.Rotate(ctx, userID.String(), refreshToken)
	if err != nil {
		if stderrors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, errors.New(errors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err, "rotating session")
	}
	return s.buildResult(user, rotated)
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}
	if err := s.sessions.Revoke(ctx, userID.String()); err != nil {
		return errors.Wrap(errors.CodeStoreUnavailable, err, "revoking session")
	}
	return nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", errors.New(errors.CodeInvalidInput, "email is malformed")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, "", errors.New(errors.CodeInvalidInput, "full name is required")
	}
	if !input.Role.IsValid() {
		return nil, "", errors.New(errors.CodeUnknownEnum, "unknown user role").WithDetails(map[string]any{
			"role": string(input.Role),
		})
	}

	tempPassword, err := security.GenerateTempPassword(16)
	if err != nil {
		return nil, "", fmt.Errorf("generating temp password: %w", err)
	}
	hash, err := security.HashPassword(tempPassword, s.pwCfg)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, "", errors.New(errors.CodeAlreadyExists, "email already registered")
		}
		return nil, "", err
	}

	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "user created")
	return user, tempPassword, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < 8 {
		return errors.New(errors.CodeInvalidInput, "new password must be at least 8 characters")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return errors.New(errors.CodeUnauthorized, "invalid credentials")
	}

	hash, err := security.HashPassword(next, s.pwCfg)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return err
	}
	// Existing sessions are cut so a stolen refresh token dies with the
	// old password.
	return s.Logout(ctx, userID)
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "user does not exist")
		}
		return nil, err
	}
	return &user, nil
}

func (s *service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *service) buildResult(user *models.User, refreshToken string) (*LoginResult, error) {
	access, err := auth.MintAccessToken(s.jwtCfg, s.now().UTC(), auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.FullName,
	})
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtCfg.ExpirationMinutes) * 60,
	}, nil
}
